package auth

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	defaultTOTPIssuer = "Inkwell"
	totpSecretSize    = 20
	totpPeriod        = 30
	totpSkew          = 1 // one step before and after
	qrCodeSize        = 200
)

// TOTPEnrollment is what a user receives exactly once when enabling 2FA
type TOTPEnrollment struct {
	Secret     string
	OTPAuthURL string
	QRCode     string // PNG data URL
}

// TOTPVerifier generates and checks RFC 6238 codes
type TOTPVerifier struct {
	issuer string
	now    func() time.Time
}

// NewTOTPVerifier creates a verifier whose provisioning URLs carry issuer
func NewTOTPVerifier(issuer string) *TOTPVerifier {
	if issuer == "" {
		issuer = defaultTOTPIssuer
	}
	return &TOTPVerifier{issuer: issuer, now: time.Now}
}

func (v *TOTPVerifier) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret creates a new random secret for accountName
func (v *TOTPVerifier) GenerateSecret(accountName string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	qr, err := qrCodeDataURL(key)
	if err != nil {
		return nil, err
	}

	return &TOTPEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		QRCode:     qr,
	}, nil
}

// Verify reports whether code is valid for secret at the current time
func (v *TOTPVerifier) Verify(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, v.now().UTC(), v.validateOpts())
	if err != nil {
		return false
	}
	return valid
}

// GenerateCode returns the code for secret at the current time
func (v *TOTPVerifier) GenerateCode(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, v.now().UTC(), v.validateOpts())
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

func qrCodeDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
