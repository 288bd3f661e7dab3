// internal/push/registration/models.go
package registration

import "notification-gateway/internal/hub"

const DefaultTokenPrefixLength = 8

// Platform-name literals carried by the legacy template's tag set.
const (
	LegacyTagIOS     = "iOS"
	LegacyTagAndroid = "Android"
)

// Metric result labels
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

func legacyPlatformTag(p hub.Platform) string {
	if p == hub.PlatformApns {
		return LegacyTagIOS
	}
	return LegacyTagAndroid
}
