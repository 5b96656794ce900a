package inspect

import (
	"context"

	"github.com/indigo-web/h1parse/http"
	"github.com/indigo-web/h1parse/kv"
	json "github.com/json-iterator/go"
)

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Body struct {
	Delimitation string `json:"delimitation"`
	Length       int    `json:"length"`
	Content      string `json:"content,omitempty"`
}

// Description is what the server answers with: everything the parser has recognized
// in the request.
type Description struct {
	Conn     string  `json:"conn"`
	Seq      int     `json:"seq"`
	Method   string  `json:"method"`
	Target   string  `json:"target"`
	Form     string  `json:"form"`
	Path     string  `json:"path"`
	Query    string  `json:"query,omitempty"`
	Proto    string  `json:"proto"`
	Headers  []Field `json:"headers"`
	Body     Body    `json:"body"`
	Trailers []Field `json:"trailers,omitempty"`
}

// describe drains the body of the request and collects the trailers, if there are any.
func describe(ctx context.Context, request *http.Request) (Description, error) {
	d := Description{
		Method:  request.Method.String(),
		Target:  request.Target.Raw,
		Form:    request.Target.Form.String(),
		Path:    request.Target.Path,
		Query:   request.Target.Query,
		Proto:   request.Proto.String(),
		Headers: fields(request.Headers),
	}

	body, err := request.Body.Bytes()
	if err != nil {
		return d, err
	}

	d.Body = Body{
		Delimitation: request.Delimitation.String(),
		Length:       len(body),
		Content:      string(body),
	}

	trailers, err := request.Trailers(ctx)
	if err != nil {
		return d, err
	}

	d.Trailers = fields(trailers)

	return d, nil
}

func fields(storage *kv.Storage) []Field {
	result := make([]Field, 0, storage.Len())
	for key, value := range storage.Pairs() {
		result = append(result, Field{Name: key, Value: value})
	}

	return result
}

func (d Description) JSON() ([]byte, error) {
	return json.ConfigCompatibleWithStandardLibrary.Marshal(d)
}
