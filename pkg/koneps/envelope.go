package koneps

import (
	"bytes"
	"encoding/json"
)

// resultSuccess is the result code the upstream API uses for a successful call.
const resultSuccess = "00"

// envelope is the standard wrapper every public-data API response carries.
type envelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			TotalCount int      `json:"totalCount"`
			Items      rawItems `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

// rawItems normalizes the upstream quirk where `items` is a plain object
// when the page holds exactly one result, an array otherwise, and absent
// or an empty string when the page holds none.
type rawItems []json.RawMessage

func (r *rawItems) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		*r = nil
		return nil
	}

	if trimmed[0] == '[' {
		var many []json.RawMessage
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return err
		}
		*r = many
		return nil
	}

	// Single object: wrap into a one-element list.
	single := make(json.RawMessage, len(trimmed))
	copy(single, trimmed)
	*r = rawItems{single}
	return nil
}
