package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gateway wire constants. The amount convention multiplies by 100 because the
// gateway expresses VND without decimals but still reserves two digits.
const (
	paramVersion  = "2.1.0"
	paramCommand  = "pay"
	paramCurrency = "VND"

	createDateLayout = "20060102150405"

	secureHashParam     = "vnp_SecureHash"
	secureHashTypeParam = "vnp_SecureHashType"
)

// requestParams is the closed set of fields sent on a payment URL. Keeping the
// struct closed means the signature always covers exactly what we emit.
type requestParams struct {
	Version    string
	Command    string
	TmnCode    string
	Amount     int64
	CreateDate time.Time
	CurrCode   string
	IPAddr     string
	Locale     string
	OrderInfo  string
	OrderType  string
	ReturnURL  string
	TxnRef     string
}

func (p requestParams) toValues() url.Values {
	values := url.Values{}
	values.Set("vnp_Version", p.Version)
	values.Set("vnp_Command", p.Command)
	values.Set("vnp_TmnCode", p.TmnCode)
	values.Set("vnp_Amount", strconv.FormatInt(p.Amount*100, 10))
	values.Set("vnp_CreateDate", p.CreateDate.Format(createDateLayout))
	values.Set("vnp_CurrCode", p.CurrCode)
	values.Set("vnp_IpAddr", p.IPAddr)
	values.Set("vnp_Locale", p.Locale)
	values.Set("vnp_OrderInfo", p.OrderInfo)
	values.Set("vnp_OrderType", p.OrderType)
	values.Set("vnp_ReturnUrl", p.ReturnURL)
	values.Set("vnp_TxnRef", p.TxnRef)
	return values
}

// Callback is the parsed, signature-verified payload of a gateway callback.
type Callback struct {
	OrderID       uuid.UUID
	Amount        int64
	ResponseCode  string
	TransactionNo string
	BankCode      string
	PayDate       string
	Raw           string
}

// signPayload builds the canonical signing string: parameters sorted
// lexicographically by key, values URL-encoded, joined with &. These are the
// same bytes the gateway hashes on its side.
func signPayload(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == secureHashParam || key == secureHashTypeParam {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(values.Get(key)))
	}
	return b.String()
}

func hmacSHA512(secret, payload string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature recomputes the HMAC over the callback params and compares it
// with the transmitted hash in constant time.
func verifySignature(secret string, values url.Values) bool {
	received := values.Get(secureHashParam)
	if received == "" {
		return false
	}
	expected := hmacSHA512(secret, signPayload(values))
	return hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
}
