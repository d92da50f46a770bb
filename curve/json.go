package curve

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DecodeJSONCurve decodes a base64-encoded JSON array of {timestamp,x,y,z}
// objects, the per-axis-set curve format of .sprintzero files.
func DecodeJSONCurve(encoded string) ([]Sample, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode curve: %v", ErrDecode, err)
	}
	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("%w: json parse curve: %v", ErrDecode, err)
	}
	return samples, nil
}

// EncodeJSONCurve is the inverse of DecodeJSONCurve.
func EncodeJSONCurve(samples []Sample) (string, error) {
	if samples == nil {
		samples = []Sample{}
	}
	raw, err := json.Marshal(samples)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
