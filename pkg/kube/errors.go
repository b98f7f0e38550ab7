// Copyright Contributors to the Open Cluster Management project

package kube

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stolostron/hnc-event-relay/pkg/model"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const maxErrorBody = 64 * 1024

// ErrIdleTimeout is returned when a watch connection stays silent for longer than the idle timeout.
var ErrIdleTimeout = errors.New("watch connection idle timeout")

// DecodeError is returned when a complete record of a watch stream can't be parsed.
type DecodeError struct {
	Record []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode watch event %q: %v", truncate(e.Record, 256), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func truncate(b []byte, max int) string {
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// newStatusError builds the error of a non-2xx response. The API returns a Status
// object for most failures; other bodies are kept as the error message.
func newStatusError(resp *http.Response, verb string, ref model.ResourceRef) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	status := metav1.Status{}
	if err := json.Unmarshal(body, &status); err == nil && status.Kind == "Status" {
		if status.Code == 0 {
			status.Code = int32(resp.StatusCode)
		}
		return &apierrors.StatusError{ErrStatus: status}
	}

	gvr, _ := GroupVersionResource(ref)
	return apierrors.NewGenericServerResponse(resp.StatusCode, verb, gvr.GroupResource(), ref.Name,
		strings.TrimSpace(string(body)), 0, false)
}

// StatusCode returns the HTTP status code carried by an API error, or 0.
func StatusCode(err error) int {
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		return int(status.Status().Code)
	}
	return 0
}

// ErrorMessage returns the message of an API error, or the error text.
func ErrorMessage(err error) string {
	var status apierrors.APIStatus
	if errors.As(err, &status) && status.Status().Message != "" {
		return status.Status().Message
	}
	return err.Error()
}
