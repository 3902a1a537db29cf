// ABOUTME: Accreditation QR codes built from user data
// ABOUTME: Encodes the QR payload, builds the image URL and validates scanned payloads

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/markalston/acreditaciones-portal/models"
)

const (
	DefaultQRSize = 200
	// QRMaxAge is how long a generated code stays valid at the gate.
	QRMaxAge = 24 * time.Hour

	defaultQRImageBase = "https://api.qrserver.com/v1/create-qr-code/"
)

var (
	ErrInvalidQR = errors.New("invalid QR code data")
	ErrQRExpired = errors.New("QR code has expired")
)

// QRPayload is the JSON encoded into an accreditation QR code.
type QRPayload struct {
	DNI       string `json:"dni"`
	Name      string `json:"name"`
	Team      string `json:"team"`
	Status    string `json:"status"`
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
}

// QRService builds QR codes. The zero value is not usable; use NewQRService.
type QRService struct {
	imageBase string
	now       func() time.Time
}

// NewQRService uses the public qrserver.com generator when imageBase is empty.
func NewQRService(imageBase string) *QRService {
	if imageBase == "" {
		imageBase = defaultQRImageBase
	}
	return &QRService{imageBase: imageBase, now: time.Now}
}

// DataString encodes the user fields a gate scanner needs.
func (q *QRService) DataString(user *models.User) string {
	payload := QRPayload{Timestamp: q.now().Unix()}
	if user != nil {
		payload.DNI = user.DNI
		payload.Name = user.Name
		payload.Team = user.Team
		payload.Status = user.Status
		payload.Event = user.Event
	}

	data, _ := json.Marshal(payload)
	return string(data)
}

// ImageURL returns a URL rendering data as a size x size QR image.
func (q *QRService) ImageURL(data string, size int) string {
	if size <= 0 {
		size = DefaultQRSize
	}

	params := url.Values{}
	params.Set("size", fmt.Sprintf("%dx%d", size, size))
	params.Set("data", data)

	sep := "?"
	if strings.Contains(q.imageBase, "?") {
		sep = "&"
	}
	return q.imageBase + sep + params.Encode()
}

// ForUser builds a complete QR code for user.
func (q *QRService) ForUser(user *models.User, size int) models.QRCode {
	data := q.DataString(user)
	return models.QRCode{
		Data:     data,
		ImageURL: q.ImageURL(data, size),
		UserData: user,
	}
}

// Validate decodes a scanned payload. dni, name and timestamp are required
// and codes older than QRMaxAge are rejected.
func (q *QRService) Validate(data string) (*QRPayload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}

	for _, required := range []string{"dni", "name", "timestamp"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("%w: missing required field %s", ErrInvalidQR, required)
		}
	}

	var payload QRPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}

	if q.now().Unix()-payload.Timestamp > int64(QRMaxAge/time.Second) {
		return nil, ErrQRExpired
	}
	return &payload, nil
}

// TestQR returns a code for a fixed sample user.
func (q *QRService) TestQR() models.QRCode {
	return q.ForUser(&models.User{
		DNI:    "12345678",
		Name:   "Juan Pérez",
		Team:   "Racing Team",
		Status: "acreditado",
		Event:  "San Nicolás",
	}, DefaultQRSize)
}
