// =============================================================================
// LIMS Results Import - XML Writer Module
// =============================================================================
//
// This module renders an import batch as the XML hand-off document read by
// the LIMS results importer.
//
// XML STRUCTURE:
//
//   <importBatch id="..." instrument="shimadzu.gcms.qp2010se">
//     <title>Shimadzu - GCMS-QP2010 SE</title>
//     <attachmentFileType>Agilent's Masshunter Quant CSV</attachmentFileType>
//     <source>130129 LS.csv</source>
//     <created>2013-01-29T15:40:00Z</created>
//     <options>
//       <allowedState>sample_received</allowedState>
//       <override>false</override>
//       <overrideEmpty>false</overrideEmpty>
//       <idSearchCriterion>request_id</idSearchCriterion>
//     </options>
//     <header>
//       <field name="Output Date">2013-01-29</field>
//     </header>
//     <sample n="1" id="DSS_Nist_L1">
//       <result n="1" compound="25-OH D3+PTAD+MA">
//         <value column="Final Conc" type="number">1.6912</value>
//         <value column="ISTD" type="text">ISTD</value>
//       </result>
//     </sample>
//     <diagnostics>
//       <warning line="31">No valid number n/a in column 4 (Resp)</warning>
//     </diagnostics>
//   </importBatch>
//
// Samples, compounds and columns are written in sorted order so the same batch
// always renders to the same bytes apart from its id and timestamp.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ginjaninja78/lims-results-import/internal/diagnostics"
	"github.com/ginjaninja78/lims-results-import/internal/importer"
	"github.com/ginjaninja78/lims-results-import/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// XMLVersion is the XML version for the declaration.
	// Default: "1.0"
	XMLVersion string

	// Encoding is the encoding for the XML declaration.
	// Default: "UTF-8"
	Encoding string

	// RootAttributes are additional attributes for the root element.
	// Example: {"xmlns": "http://example.com/schema"}
	RootAttributes map[string]string

	// ResultNumberingGlobal determines if result numbering is global.
	// If true: results are numbered 1, 2, 3, 4... across all samples.
	// If false: results restart at 1 for each sample.
	// Default: false
	ResultNumberingGlobal bool

	// IndexAttribute is the attribute name for sample and result indexes.
	// Default: "n"
	IndexAttribute string

	// IncludeDiagnostics adds the <diagnostics> block.
	// Default: true
	IncludeDiagnostics bool
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		XMLVersion:            "1.0",
		Encoding:              "UTF-8",
		RootAttributes:        make(map[string]string),
		IndexAttribute:        "n",
		IncludeDiagnostics:    true,
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate creates the XML hand-off document for a batch.
func Generate(batch *importer.Batch) ([]byte, error) {
	return GenerateWithOptions(batch, DefaultGenerateOptions())
}

// GenerateWithOptions creates the XML document with custom options.
func GenerateWithOptions(batch *importer.Batch, options GenerateOptions) ([]byte, error) {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(fmt.Sprintf("<?xml version=\"%s\" encoding=\"%s\"?>\n",
			options.XMLVersion, options.Encoding))
	}

	doc := buildDocument(batch, options)

	xmlBytes, err := marshalWithIndent(doc, options.Indent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal XML: %w", err)
	}

	buffer.Write(xmlBytes)

	return buffer.Bytes(), nil
}

// =============================================================================
// XML DOCUMENT BUILDING
// =============================================================================

// XMLDocument represents the root of the XML document.
type XMLDocument struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Children   []XMLElement
}

// XMLElement represents a generic XML element.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument constructs the XML document structure.
func buildDocument(batch *importer.Batch, options GenerateOptions) *XMLDocument {
	doc := &XMLDocument{
		XMLName: xml.Name{Local: "importBatch"},
		Attributes: []xml.Attr{
			attr("id", batch.ID),
			attr("instrument", batch.Instrument.Key),
		},
	}

	for _, key := range sortedKeys(options.RootAttributes) {
		doc.Attributes = append(doc.Attributes, attr(key, options.RootAttributes[key]))
	}

	doc.Children = append(doc.Children,
		createSimpleElement("title", batch.Instrument.Title),
		createSimpleElement("attachmentFileType", batch.Instrument.AttachmentFileType),
		createSimpleElement("source", batch.Document().Source),
		createSimpleElement("created", batch.CreatedAt.Format(time.RFC3339)),
		buildOptionsElement(batch.Settings),
	)

	if header := batch.Outcome.Header; len(header) > 0 {
		element := XMLElement{XMLName: xml.Name{Local: "header"}}
		for _, key := range header.Keys() {
			field := createSimpleElement("field", header[key].String())
			field.Attributes = []xml.Attr{attr("name", key)}
			element.Children = append(element.Children, field)
		}
		doc.Children = append(doc.Children, element)
	}

	resultIndex := 1
	results := batch.Outcome.Results
	for i, id := range results.SampleIDs() {
		if !options.ResultNumberingGlobal {
			resultIndex = 1
		}
		doc.Children = append(doc.Children,
			buildSampleElement(id, i+1, results[id], options, &resultIndex))
	}

	if options.IncludeDiagnostics {
		doc.Children = append(doc.Children, buildDiagnosticsElement(&batch.Outcome.Report))
	}

	return doc
}

// buildOptionsElement writes the resolved import options.
func buildOptionsElement(s importer.Settings) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: "options"}}

	for _, state := range s.AllowedStates {
		element.Children = append(element.Children, createSimpleElement("allowedState", state))
	}
	element.Children = append(element.Children,
		createSimpleElement("override", strconv.FormatBool(s.Override)),
		createSimpleElement("overrideEmpty", strconv.FormatBool(s.OverrideEmpty)),
	)
	for _, c := range s.IDSearchCriteria {
		element.Children = append(element.Children, createSimpleElement("idSearchCriterion", c))
	}
	if s.InstrumentUID != "" {
		element.Children = append(element.Children, createSimpleElement("instrumentUID", s.InstrumentUID))
	}

	return element
}

// buildSampleElement constructs one sample element.
//
// STRUCTURE:
//
//	<sample n="1" id="DSS_Nist_L1">
//	  <result n="1" compound="25-OH D3+PTAD+MA">
//	    <value column="Final Conc" type="number">1.6912</value>
//	  </result>
//	</sample>
func buildSampleElement(id string, index int, sample types.SampleResult, options GenerateOptions, resultIndex *int) XMLElement {
	element := XMLElement{
		XMLName: xml.Name{Local: "sample"},
		Attributes: []xml.Attr{
			attr(options.IndexAttribute, strconv.Itoa(index)),
			attr("id", id),
		},
	}

	for _, compound := range sample.Compounds() {
		row := sample[compound]
		result := XMLElement{
			XMLName: xml.Name{Local: "result"},
			Attributes: []xml.Attr{
				attr(options.IndexAttribute, strconv.Itoa(*resultIndex)),
				attr("compound", compound),
			},
		}

		for _, column := range row.Columns() {
			v := row[column]
			kind := "text"
			if v.Numeric {
				kind = "number"
			}
			value := createSimpleElement("value", v.String())
			value.Attributes = []xml.Attr{attr("column", column), attr("type", kind)}
			result.Children = append(result.Children, value)
		}

		element.Children = append(element.Children, result)
		(*resultIndex)++
	}

	return element
}

// buildDiagnosticsElement writes the three diagnostic lists in order.
func buildDiagnosticsElement(report *diagnostics.Report) XMLElement {
	element := XMLElement{XMLName: xml.Name{Local: "diagnostics"}}

	add := func(name string, entries []diagnostics.Entry) {
		for _, e := range entries {
			child := createSimpleElement(name, e.Message)
			child.Attributes = []xml.Attr{attr("kind", string(e.Kind))}
			if e.Line > 0 {
				child.Attributes = append(child.Attributes, attr("line", strconv.Itoa(e.Line)))
			}
			element.Children = append(element.Children, child)
		}
	}

	add("error", report.Errors)
	add("warning", report.Warnings)
	add("log", report.Logs)

	return element
}

// =============================================================================
// SINK
// =============================================================================

// Sink writes each batch as an XML file.
type Sink struct {
	path    importer.PathFunc
	options GenerateOptions
}

// NewSink returns an XML sink writing to the paths returned by path.
func NewSink(path importer.PathFunc, options GenerateOptions) *Sink {
	return &Sink{path: path, options: options}
}

// Name implements importer.Sink.
func (s *Sink) Name() string { return "xml" }

// Write implements importer.Sink.
func (s *Sink) Write(_ context.Context, batch *importer.Batch) (string, error) {
	data, err := GenerateWithOptions(batch, s.options)
	if err != nil {
		return "", err
	}

	out := s.path(batch, ".xml")
	if err := os.WriteFile(out, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// createSimpleElement creates a simple XML element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// marshalWithIndent marshals the document with indentation.
func marshalWithIndent(doc *XMLDocument, indent string) ([]byte, error) {
	var buffer bytes.Buffer

	buffer.WriteString("<")
	buffer.WriteString(doc.XMLName.Local)
	for _, a := range doc.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a.Name.Local, escapeXML(a.Value)))
	}
	buffer.WriteString(">\n")

	for _, child := range doc.Children {
		writeElement(&buffer, child, indent, 1)
	}

	buffer.WriteString("</")
	buffer.WriteString(doc.XMLName.Local)
	buffer.WriteString(">\n")

	return buffer.Bytes(), nil
}

// writeElement writes an XML element to the buffer with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)
	for _, a := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a.Name.Local, escapeXML(a.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")
		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}
		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters for XML.
func escapeXML(s string) string {
	var buffer bytes.Buffer
	if err := xml.EscapeText(&buffer, []byte(s)); err != nil {
		return s
	}
	return buffer.String()
}
