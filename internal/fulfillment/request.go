package fulfillment

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// WebhookRequest is the fulfillment request posted by the conversational platform.
// Fields this service does not read are ignored.
type WebhookRequest struct {
	ResponseID  string      `json:"responseId"`
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult"`
}

// QueryResult carries the matched intent and its extracted parameters.
type QueryResult struct {
	QueryText    string                `json:"queryText"`
	LanguageCode string                `json:"languageCode,omitempty"`
	Intent       Intent                `json:"intent"`
	Parameters   map[string]StringList `json:"parameters"`
}

// Intent identifies the matched intent by display name.
type Intent struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName"`
}

// WebhookResponse is the fulfillment reply.
type WebhookResponse struct {
	FulfillmentText string `json:"fulfillmentText"`
}

// Query converts the request into a dispatchable query.
func (r *WebhookRequest) Query() Query {
	return Query{
		Intent: r.QueryResult.Intent.DisplayName,
		Params: r.QueryResult.Parameters,
	}
}

// StringList is a multi-value slot. It decodes from a JSON string, an array
// of strings, null or an absent field; blank strings are dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out StringList
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			out = out.appendValue(item)
		}
	default:
		out = out.appendValue(v)
	}
	*l = out
	return nil
}

// appendValue adds scalar values; nested arrays and objects are not slot values.
func (l StringList) appendValue(v any) StringList {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			return append(l, val)
		}
	case float64:
		return append(l, strconv.FormatFloat(val, 'f', -1, 64))
	}
	return l
}

// Values returns the list as a plain slice.
func (l StringList) Values() []string {
	return []string(l)
}
