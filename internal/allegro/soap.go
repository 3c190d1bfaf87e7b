package allegro

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	Body    struct {
		Content interface{}
	} `xml:"soapenv:Body"`
}

type responseEnvelope[T any] struct {
	Body struct {
		Fault    *FaultError `xml:"Fault"`
		Response T           `xml:",any"`
	} `xml:"Body"`
}

// FaultError is a SOAP fault returned by the WebAPI.
type FaultError struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (f *FaultError) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// call posts one SOAP request and decodes the response body into T.
func call[T any](ctx context.Context, c *Client, action string, request interface{}) (*T, error) {
	env := requestEnvelope{SoapNS: soapEnvelopeNS}
	env.Body.Content = request

	payload, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.env.Endpoint,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "#"+action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", action, err)
	}

	var out responseEnvelope[T]
	if err := xml.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s failed with status %d", action, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if out.Body.Fault != nil {
		return nil, out.Body.Fault
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed with status %d", action, resp.StatusCode)
	}

	return &out.Body.Response, nil
}
