// Package shimadzu registers the Shimadzu instrument parsers.
package shimadzu

import (
	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/gcms"
	"github.com/ginjaninja78/lims-results-import/internal/instruments"
)

// QP2010SE is the registry key of the GCMS-QP2010 SE parser.
const QP2010SE = config.DefaultInstrument

func init() {
	instruments.Register(instruments.Definition{
		Key:                QP2010SE,
		Vendor:             "shimadzu",
		Title:              "Shimadzu - GCMS-QP2010 SE",
		AttachmentFileType: "Agilent's Masshunter Quant CSV",
		New: func(profile config.InstrumentProfile, logger *zap.Logger) (instruments.Parser, error) {
			p, err := gcms.NewParser(profile, logger)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	})
}
