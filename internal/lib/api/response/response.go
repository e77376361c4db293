package response

// Response is the uniform envelope for bridge API replies.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	statusOk    = "ok"
	statusError = "error"
)

func Ok(message string) Response {
	return Response{
		Status:  statusOk,
		Message: message,
	}
}

func Error(message string) Response {
	return Response{
		Status: statusError,
		Error:  message,
	}
}
