package scraper

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Trigger is the inbound scheduler event: opaque attributes plus an optional
// base64-encoded message body. An absent payload is itself a valid no-op
// trigger.
type Trigger struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       string            `json:"data,omitempty"`
}

// ParseTrigger decodes a raw trigger payload. A nil or empty payload returns
// an empty trigger and no error; callers log it and proceed. The decoded
// message body, if any, is returned alongside.
func ParseTrigger(raw []byte) (Trigger, []byte, error) {
	if len(raw) == 0 {
		return Trigger{}, nil, nil
	}

	var trig Trigger
	if err := json.Unmarshal(raw, &trig); err != nil {
		return Trigger{}, nil, fmt.Errorf("decode trigger payload: %w", err)
	}
	if trig.Data == "" {
		return trig, nil, nil
	}

	body, err := base64.StdEncoding.DecodeString(trig.Data)
	if err != nil {
		return Trigger{}, nil, fmt.Errorf("decode trigger body: %w", err)
	}
	return trig, body, nil
}
