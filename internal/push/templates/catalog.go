// Package templates holds the payload template bodies registered on
// installations. Bodies are JSON with $(param) placeholders that the hub
// fills from the properties of a templated send.
package templates

import (
	"encoding/json"
	"fmt"

	"notification-gateway/internal/common/config"
	"notification-gateway/internal/hub"
	"notification-gateway/pkg/registry"
)

// Kind selects a template variant.
type Kind string

const (
	KindNormal   Kind = "normal"
	KindCritical Kind = "critical"
	KindLegacy   Kind = "legacy"
)

// Installation template names.
const (
	LegacyTemplateName   = "LegacyTemplate"
	CriticalTemplateName = "CriticalTemplate"
	NormalTemplateName   = "NormalTemplate"
)

// Template parameters filled in on send.
const (
	TitleParam       = "titleParam"
	BodyParam        = "bodyParam"
	JSONPayloadParam = "jsonPayloadParam"
	SoundParam       = "soundParam"
	IOSSoundParam    = "iosSoundParam"
)

const (
	FcmNormal    = `{"message":{"android":{"data":{"json":"$(jsonPayloadParam)","title":"$(titleParam)","body":"$(bodyParam)","critical":"false"}}}}`
	FcmCritical  = `{"message":{"android":{"data":{"json":"$(jsonPayloadParam)","title":"$(titleParam)","body":"$(bodyParam)","critical":"true","sound":"$(soundParam)"},"priority":"high"}}}`
	FcmLegacy    = `{"message":{"data":{"message":"$(bodyParam)","payload":"$(jsonPayloadParam)"}}}`
	ApnsNormal   = `{"aps": {"alert" : { "title" : "$(titleParam)", "body" : "$(bodyParam)" }, "json":"$(jsonPayloadParam)"}}`
	ApnsCritical = `{"aps": {"alert" : { "title" : "$(titleParam)", "body" : "$(bodyParam)" }, "sound" : {"critical" : 1, "volume" : 1.0, "name" : "$(iosSoundParam)"}, "json":"$(jsonPayloadParam)"}}`
	ApnsLegacy   = `{"aps":{"alert":"$(bodyParam)","badge":1,"sound":"default"},"payload":"$(jsonPayloadParam)"}`
)

type key struct {
	platform hub.Platform
	kind     Kind
}

// Catalog is an immutable (platform, kind) -> body lookup built once at startup.
type Catalog struct {
	bodies map[key]string
}

// Default returns the catalog of built-in bodies.
func Default() *Catalog {
	return &Catalog{bodies: map[key]string{
		{hub.PlatformFcm, KindNormal}:    FcmNormal,
		{hub.PlatformFcm, KindCritical}:  FcmCritical,
		{hub.PlatformFcm, KindLegacy}:    FcmLegacy,
		{hub.PlatformApns, KindNormal}:   ApnsNormal,
		{hub.PlatformApns, KindCritical}: ApnsCritical,
		{hub.PlatformApns, KindLegacy}:   ApnsLegacy,
	}}
}

// NewCatalog layers the registry file, then non-empty config entries, over
// the built-in bodies. Every resulting body must be valid JSON.
func NewCatalog(cfg config.TemplateConfig) (*Catalog, error) {
	c := Default()

	if cfg.RegistryPath != "" {
		reg, err := registry.LoadRegistry(cfg.RegistryPath)
		if err != nil {
			return nil, fmt.Errorf("load template registry: %w", err)
		}
		for k := range c.bodies {
			if body, ok := reg.Lookup(string(k.platform), string(k.kind)); ok {
				c.bodies[k] = body
			}
		}
	}

	overrides := map[key]string{
		{hub.PlatformFcm, KindNormal}:    cfg.FcmNormal,
		{hub.PlatformFcm, KindCritical}:  cfg.FcmCritical,
		{hub.PlatformFcm, KindLegacy}:    cfg.FcmLegacy,
		{hub.PlatformApns, KindNormal}:   cfg.ApnsNormal,
		{hub.PlatformApns, KindCritical}: cfg.ApnsCritical,
		{hub.PlatformApns, KindLegacy}:   cfg.ApnsLegacy,
	}
	for k, body := range overrides {
		if body != "" {
			c.bodies[k] = body
		}
	}

	for k, body := range c.bodies {
		if !json.Valid([]byte(body)) {
			return nil, fmt.Errorf("template %s/%s is not valid JSON", k.platform, k.kind)
		}
	}
	return c, nil
}

// TemplateFor returns the body for platform and urgency, and whether it is the critical variant.
func (c *Catalog) TemplateFor(platform hub.Platform, critical bool) (string, bool) {
	if critical {
		return c.Body(platform, KindCritical), true
	}
	return c.Body(platform, KindNormal), false
}

// LegacyTemplateFor returns the pre-migration body for platform.
func (c *Catalog) LegacyTemplateFor(platform hub.Platform) string {
	return c.Body(platform, KindLegacy)
}

// Body looks up a body; unknown platforms get the FCM family.
func (c *Catalog) Body(platform hub.Platform, kind Kind) string {
	if platform != hub.PlatformApns {
		platform = hub.PlatformFcm
	}
	return c.bodies[key{platform, kind}]
}
