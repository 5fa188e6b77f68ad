package adapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aiarchives/aiarchives/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// BlobPathPrefix is the route that serves URLs minted by URLSigner
const BlobPathPrefix = "/blob/"

var (
	errSignatureMismatch = goerr.New("signature mismatch")
	errSignedURLExpired  = goerr.New("signed url expired")
)

// URLSigner mints and verifies HMAC-SHA256 signed read URLs for stores that
// are served by this process instead of a cloud provider.
type URLSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// SignerOption configures a URLSigner
type SignerOption func(*URLSigner)

// WithSignerClock replaces time.Now
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *URLSigner) {
		s.now = now
	}
}

// NewURLSigner creates a URLSigner. baseURL is the public origin of this service.
func NewURLSigner(secret []byte, baseURL string, opts ...SignerOption) (*URLSigner, error) {
	if len(secret) == 0 {
		return nil, goerr.New("signing key is required")
	}

	s := &URLSigner{
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *URLSigner) signature(key model.ContentKey, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns a URL for key valid for expiry
func (s *URLSigner) Sign(key model.ContentKey, expiry time.Duration) string {
	expires := s.now().Add(normalizeExpiry(expiry)).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.signature(key, expires))

	return s.baseURL + BlobPathPrefix + key.String() + "?" + q.Encode()
}

// Verify checks the expires and signature query values of a signed URL for key
func (s *URLSigner) Verify(key model.ContentKey, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return goerr.Wrap(errSignatureMismatch, "invalid expires", goerr.V("expires", expires))
	}

	want := s.signature(key, exp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return goerr.Wrap(errSignatureMismatch, "invalid signature", goerr.V("key", key))
	}

	if s.now().Unix() > exp {
		return goerr.Wrap(errSignedURLExpired, "signed url expired",
			goerr.V("key", key), goerr.V("expires", exp))
	}

	return nil
}
