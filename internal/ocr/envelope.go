package ocr

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/invoice-ocr/internal/invoice"
)

// envelopeSchema is the response shape of POST /api/ocr. Only the envelope is
// constrained; data is decoded leniently by the invoice package.
const envelopeSchema = `{
	"type": "object",
	"required": ["success"],
	"properties": {
		"success": {"type": "boolean"},
		"data": {"type": ["object", "null"]},
		"error": {"type": ["string", "null"]}
	}
}`

var envelopeValidator = jsonschema.MustCompileString("envelope.json", envelopeSchema)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

// parseEnvelope validates and unpacks a response body. It returns the decoded
// result on success, or a *Error of kind protocol or rejected.
func parseEnvelope(body []byte) (*invoice.InvoiceResult, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, protocolError("decoding response: %w", err)
	}
	if err := envelopeValidator.Validate(doc); err != nil {
		return nil, protocolError("response does not match envelope: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, protocolError("unmarshaling envelope: %w", err)
	}

	if !env.Success {
		message := ""
		if env.Error != nil {
			message = *env.Error
		}
		return nil, rejectedError(message)
	}

	if len(env.Data) == 0 {
		return &invoice.InvoiceResult{}, nil
	}
	result, err := invoice.Decode(env.Data)
	if err != nil {
		return nil, protocolError("%w", err)
	}
	return result, nil
}

