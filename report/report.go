package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Mode is the delivery mode recorded against a service item.
type Mode string

const (
	ModeStandard  Mode = "通常提供"
	ModeProactive Mode = "積極提供"
	ModeAdapted   Mode = "個別対応"
)

// ItemLabels is the closed set of service items on the report form, in the
// order they appear on the form and in the rendered document.
var ItemLabels = []string{
	"健康管理",
	"食事提供",
	"入浴支援",
	"服薬管理",
	"金銭管理",
	"余暇支援",
}

// Modes lists the delivery modes in form order.
func Modes() []Mode {
	return []Mode{ModeStandard, ModeProactive, ModeAdapted}
}

// Item is the delivery mode and free-text note recorded for a single
// service item.
type Item struct {
	Mode Mode   `json:"method"`
	Note string `json:"note"`
}

// Record is one report as entered on the form. A record is built fresh per
// submission and never modified after rendering.
type Record struct {
	Subject   string
	Author    string
	Date      time.Time
	Items     map[string]Item
	Narrative string
}

// Validate checks the fields required before a record may be rendered or
// persisted. Item notes and the narrative may be blank.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("利用者名は必須です")
	}

	if strings.TrimSpace(r.Author) == "" {
		return fmt.Errorf("記録者名は必須です")
	}

	return nil
}

// Filename returns the name under which the rendered document is stored,
// e.g. 田中_20240115_093000.pdf. The date portion comes from the report date,
// the time portion from the submission clock.
func (r Record) Filename(now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.pdf", r.Subject, r.Date.Format("20060102"), now.Format("150405"))
}

// EncodeItems serializes an item mapping to the JSON object text stored in
// the history worksheet.
func EncodeItems(items map[string]Item) (string, error) {
	if items == nil {
		items = map[string]Item{}
	}

	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("unable to serialize report items (%w)", err)
	}

	return string(b), nil
}

// DecodeItems is the inverse of EncodeItems. Rows written by hand (or
// mangled in the worksheet) are common enough that malformed text decodes to
// an empty mapping rather than failing the whole history read.
func DecodeItems(s string) map[string]Item {
	items := map[string]Item{}

	if !gjson.Valid(s) {
		return items
	}

	parsed := gjson.Parse(s)
	if !parsed.IsObject() {
		return items
	}

	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() {
			items[key.String()] = Item{
				Mode: Mode(value.Get("method").String()),
				Note: value.Get("note").String(),
			}
		}
		return true
	})

	return items
}
