package models

import "net/http"

// DocumentSuccess is one successfully ingested document in a batch
// response.
type DocumentSuccess struct {
	Status   string `json:"status"`
	Document string `json:"document"`
	RecordID string `json:"record_id"`
}

// DocumentFailure is one failed document or envelope in a batch
// response. Document is empty when the failure happened while
// unwrapping an envelope, before any document identity was known.
type DocumentFailure struct {
	Status   string `json:"status"`
	Document string `json:"document,omitempty"`
	Error    string `json:"error"`
}

// BatchResponse summarizes the fate of every item in one invocation.
type BatchResponse struct {
	Processed    int               `json:"processed"`
	Errors       int               `json:"errors"`
	Results      []DocumentSuccess `json:"results"`
	ErrorsDetail []DocumentFailure `json:"errors_detail"`
}

// AddSuccess appends a success outcome and keeps the counters in sync.
func (b *BatchResponse) AddSuccess(document, recordID string) {
	b.Results = append(b.Results, DocumentSuccess{
		Status:   "success",
		Document: document,
		RecordID: recordID,
	})
	b.Processed = len(b.Results)
}

// AddFailure appends a failure outcome. Pass an empty document for
// envelope-level failures.
func (b *BatchResponse) AddFailure(document, errMsg string) {
	b.ErrorsDetail = append(b.ErrorsDetail, DocumentFailure{
		Status:   "error",
		Document: document,
		Error:    errMsg,
	})
	b.Errors = len(b.ErrorsDetail)
}

// StatusCode maps the batch outcome to an HTTP status: 200 when every
// item succeeded, 207 for a partial or mixed outcome.
func (b *BatchResponse) StatusCode() int {
	if b.Errors > 0 {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}
