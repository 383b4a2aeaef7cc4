package submission

import (
	"errors"

	"github.com/zombor/invoice-ocr/internal/ocr"
)

// Operator-facing messages
const (
	// MessageNoFileSelected asks the operator to pick an invoice image first
	MessageNoFileSelected = "请先选择发票图片"
	// MessageNetwork says the request failed and the backend should be checked
	MessageNetwork = "网络请求失败，请检查后端服务"
	// MessageFailed says recognition failed and to retry
	MessageFailed = ocr.DefaultRejectedMessage
)

// Message turns an error into the single string shown to the operator
func Message(err error) string {
	if errors.Is(err, ErrNoFileSelected) {
		return MessageNoFileSelected
	}

	var ocrErr *ocr.Error
	if !errors.As(err, &ocrErr) {
		return MessageFailed
	}
	switch ocrErr.Kind {
	case ocr.KindNetwork:
		return MessageNetwork
	case ocr.KindRejected:
		if ocrErr.Message != "" {
			return ocrErr.Message
		}
	}
	return MessageFailed
}
