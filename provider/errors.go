package provider

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// statusError adapts a provider SDK's transport error to StatusCoder
// so the retry loop can classify it without knowing the SDK's concrete
// error type, mirroring base_client.should_retry's getattr probing.
type statusError struct {
	cause error
	code  int
}

func (e statusError) Error() string  { return e.cause.Error() }
func (e statusError) Unwrap() error  { return e.cause }
func (e statusError) StatusCode() int { return e.code }

func httpStatusFromErr(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
