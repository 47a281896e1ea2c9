package tsdesk

// Response is the envelope returned by every Desk operation.
type Response[T any] struct {
	Success bool   `json:"success" yaml:"success"`
	Data    *T     `json:"data" yaml:"data,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func ok[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data}
}

// fail builds a failed envelope. Boolean operations report data false.
func fail[T any](msg string) Response[T] {
	resp := Response[T]{Error: msg}
	var zero T
	if _, isBool := any(zero).(bool); isBool {
		resp.Data = &zero
	}
	return resp
}
