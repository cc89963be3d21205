package models

// RawExtraction is what the vision service read off a voucher photo.
// Every field may be absent or garbage; the validation pipeline decides.
// Denomination 0 means unrecognized.
type RawExtraction struct {
	Denomination int    `json:"denomination"`
	ValidFrom    string `json:"valid_from"`
	ExpiryDate   string `json:"expiry_date"`
	Barcode      string `json:"barcode"`
}

// ToMap renders the extraction for the jsonb audit column.
func (r RawExtraction) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"denomination": r.Denomination,
		"valid_from":   r.ValidFrom,
		"expiry_date":  r.ExpiryDate,
		"barcode":      r.Barcode,
	}
}
