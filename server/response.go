package server

import (
	"fmt"
	"math"

	"github.com/segmentio/encoding/json"

	"github.com/litevna/litevnaserver/litevna"
)

var (
	responseBadRequest = []byte("HTTP/1.1 400 Bad Request\r\nConnection: close\r\nContent-Length: 11\r\n\r\nBad Request")
	responseNotFound   = []byte("HTTP/1.1 404 Not Found\r\nConnection: close\r\nContent-Length: 9\r\n\r\nNot Found")
	responseNotAllowed = []byte("HTTP/1.1 405 Not Allowed\r\nConnection: close\r\nContent-Length: 11\r\n\r\nNot Allowed")
)

// jsonOK wraps body in a 200 response.
func jsonOK(body []byte) []byte {
	header := fmt.Sprintf("HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n", len(body))

	return append([]byte(header), body...)
}

// jsonFloat encodes non-finite values, produced by a zero reference sample, as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}

	return json.Marshal(v)
}

type s11JSON struct {
	LogMag jsonFloat `json:"log_mag"`
	Phase  jsonFloat `json:"phase"`
	SWR    jsonFloat `json:"swr"`
}

type s21JSON struct {
	LogMag jsonFloat `json:"log_mag"`
	Phase  jsonFloat `json:"phase"`
}

type pointJSON struct {
	Freq uint64  `json:"freq"`
	S11  s11JSON `json:"s11"`
	S21  s21JSON `json:"s21"`
}

type resultJSON struct {
	Result []pointJSON `json:"result"`
}

// encodeResult renders the sweep, one entry per point in ascending frequency.
func encodeResult(req litevna.ScanRequest, values *litevna.ScanValues) ([]byte, error) {
	res := resultJSON{Result: make([]pointJSON, values.Len())}

	for n := range res.Result {
		s11 := values.Channel0In[n]
		s21 := values.Channel1In[n]

		res.Result[n] = pointJSON{
			Freq: req.Freq(n),
			S11: s11JSON{
				LogMag: jsonFloat(litevna.LogMag(s11)),
				Phase:  jsonFloat(litevna.Phase(s11)),
				SWR:    jsonFloat(litevna.SWR(s11)),
			},
			S21: s21JSON{
				LogMag: jsonFloat(litevna.LogMag(s21)),
				Phase:  jsonFloat(litevna.Phase(s21)),
			},
		}
	}

	return json.Marshal(res)
}

// encodeError renders {"error": "<msg>"}.
func encodeError(msg string) []byte {
	quoted, err := json.Marshal(msg)
	if err != nil {
		quoted = []byte(`"internal error"`)
	}

	body := make([]byte, 0, len(quoted)+12)
	body = append(body, `{"error": `...)
	body = append(body, quoted...)

	return append(body, '}')
}
