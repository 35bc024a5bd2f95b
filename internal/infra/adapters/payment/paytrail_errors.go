package payment

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"paytrail-client/internal/domain"
)

// APIError is an error document returned by the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Paytrail::Exception %s [%s]", e.Message, e.Code)
}

func (e *APIError) Unwrap() error { return domain.ErrGatewayRejected }

// UnexpectedResponseError is returned when the gateway answers with something
// that is neither a payment nor a recognizable error document.
type UnexpectedResponseError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unknown-error %s [%d]", e.Body, e.StatusCode)
}

func (e *UnexpectedResponseError) Unwrap() error { return domain.ErrUnexpectedResponse }

// decodeError builds the error for a non-201 response, branching on the media type.
func decodeError(resp *http.Response, body []byte) error {
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var (
		code, msg string
		err       error
	)
	switch mt {
	case "application/xml", "text/xml":
		code, msg, err = decodeXMLError(body)
	case "application/json":
		var out errorResponse
		err = json.Unmarshal(body, &out)
		code, msg = jsonScalar(out.ErrorCode), jsonScalar(out.ErrorMessage)
	default:
		return &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err != nil || (code == "" && msg == "") {
		return &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: code, Message: msg}
}

// jsonScalar renders a raw JSON value as text: strings lose their quotes,
// null and absent values become "", anything else is kept as written.
func jsonScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// decodeXMLError collects every errorCode and errorMessage element, wherever it
// sits in the document, and joins repeated ones with a comma.
func decodeXMLError(body []byte) (code, msg string, err error) {
	var codes, msgs []string
	dec := xml.NewDecoder(bytes.NewReader(body))
	var current *[]string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", fmt.Errorf("decode xml error document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "errorCode":
				current = &codes
				text.Reset()
			case "errorMessage":
				current = &msgs
				text.Reset()
			}
		case xml.CharData:
			if current != nil {
				text.Write(t)
			}
		case xml.EndElement:
			if current != nil && (t.Name.Local == "errorCode" || t.Name.Local == "errorMessage") {
				*current = append(*current, strings.TrimSpace(text.String()))
				current = nil
			}
		}
	}
	return strings.Join(codes, ","), strings.Join(msgs, ","), nil
}
