package payments

// Gateway acknowledgement codes returned to VNPay callbacks. The gateway
// retries the IPN until it receives "00", so every handled outcome
// (including a recorded payment failure) acknowledges with success.
const (
	RspSuccess          = "00"
	RspOrderNotFound    = "01"
	RspAlreadyConfirmed = "02"
	RspInvalidAmount    = "04"
	RspInvalidSignature = "97"
	RspUnhandledError   = "99"
)

var rspMessages = map[string]string{
	RspSuccess:          "Confirm Success",
	RspOrderNotFound:    "Order not found",
	RspAlreadyConfirmed: "Order already confirmed",
	RspInvalidAmount:    "Invalid amount",
	RspInvalidSignature: "Invalid signature",
	RspUnhandledError:   "Unknown error",
}

// MessageFor maps an acknowledgement code to its canonical text.
func MessageFor(code string) string {
	if msg, ok := rspMessages[code]; ok {
		return msg
	}
	return rspMessages[RspUnhandledError]
}
