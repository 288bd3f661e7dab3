package hub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTokenTTL = time.Hour

// credentials holds the parts of a hub connection string.
type credentials struct {
	Endpoint string // https://<namespace>.servicebus.windows.net/
	KeyName  string
	Key      string
}

// parseConnectionString reads an
// "Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=..;SharedAccessKey=.." string.
func parseConnectionString(cs string) (*credentials, error) {
	creds := &credentials{}
	for _, part := range strings.Split(cs, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("malformed connection string segment %q", part)
		}
		switch strings.ToLower(key) {
		case "endpoint":
			creds.Endpoint = value
		case "sharedaccesskeyname":
			creds.KeyName = value
		case "sharedaccesskey":
			creds.Key = value
		}
	}

	if creds.Endpoint == "" || creds.KeyName == "" || creds.Key == "" {
		return nil, fmt.Errorf("connection string requires Endpoint, SharedAccessKeyName and SharedAccessKey")
	}

	u, err := url.Parse(creds.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", creds.Endpoint)
	}
	u.Scheme = "https"
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	creds.Endpoint = u.String()

	return creds, nil
}

// sasToken signs resource with the shared access key, valid until now+ttl.
func (c *credentials) sasToken(resource string, now time.Time, ttl time.Duration) string {
	target := strings.ToLower(url.QueryEscape(strings.ToLower(resource)))
	expiry := strconv.FormatInt(now.Add(ttl).Unix(), 10)

	mac := hmac.New(sha256.New, []byte(c.Key))
	mac.Write([]byte(target + "\n" + expiry))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("SharedAccessSignature sr=%s&sig=%s&se=%s&skn=%s",
		target, url.QueryEscape(sig), expiry, c.KeyName)
}
