package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careworks-jp/careform/report"
)

func testRecord() report.Record {
	return report.Record{
		Subject: "田中",
		Author:  "佐藤",
		Date:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local),
		Items: map[string]report.Item{
			"入浴支援": {Mode: report.ModeProactive, Note: "シャワーのみ"},
		},
		Narrative: "経過良好\n引き続き見守りを行う",
	}
}

func TestRender(t *testing.T) {
	renderer := Renderer{
		Organization: "グループホームひまわり",
	}

	b, err := renderer.Render(testRecord())
	require.NoError(t, err)
	require.NotEmpty(t, b)
	assert.Equal(t, "%PDF", string(b[:4]))
}

func TestRenderWithEmptyItems(t *testing.T) {
	renderer := Renderer{}

	record := testRecord()
	record.Items = nil

	b, err := renderer.Render(record)
	require.NoError(t, err)
	require.NotEmpty(t, b)
}

func TestRenderWithMissingFont(t *testing.T) {
	renderer := Renderer{
		FontPath: "/no/such/font.ttf",
	}

	b, err := renderer.Render(testRecord())
	assert.Error(t, err)
	assert.Empty(t, b)
}
