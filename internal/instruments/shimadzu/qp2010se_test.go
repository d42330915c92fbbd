package shimadzu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ginjaninja78/lims-results-import/internal/config"
	"github.com/ginjaninja78/lims-results-import/internal/instruments"
)

func TestQP2010SERegistered(t *testing.T) {
	def, ok := instruments.Get(QP2010SE)
	require.True(t, ok)
	assert.Equal(t, "Shimadzu - GCMS-QP2010 SE", def.Title)
	assert.Equal(t, "Agilent's Masshunter Quant CSV", def.AttachmentFileType)

	p, _, err := instruments.NewParser(QP2010SE, config.DefaultProfile(), zap.NewNop())
	require.NoError(t, err)

	out, err := p.Parse(strings.NewReader(strings.Join([]string{
		"[Header]",
		"[Sample Information]",
		"Data File,Sample Name",
		"A.d,A",
		"Quantitation Results",
		"Target Compound,X",
		"Data File,Compound,Final Conc",
		"A.d,X,1.5",
	}, "\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, out.Results.SampleIDs())
}
