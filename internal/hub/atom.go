package hub

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	atomNamespace    = "http://www.w3.org/2005/Atom"
	connectNamespace = "http://schemas.microsoft.com/netservices/2010/10/servicebus/connect"
)

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	XMLName xml.Name    `xml:"entry"`
	ID      string      `xml:"id"`
	Content atomContent `xml:"content"`
}

type atomContent struct {
	Description registrationDescription `xml:",any"`
}

// registrationDescription covers the Apple and FCM registration variants;
// the element name tells them apart.
type registrationDescription struct {
	XMLName             xml.Name
	ETag                string `xml:"ETag"`
	ExpirationTime      string `xml:"ExpirationTime"`
	RegistrationID      string `xml:"RegistrationId"`
	Tags                string `xml:"Tags"`
	DeviceToken         string `xml:"DeviceToken"`
	FcmV1RegistrationID string `xml:"FcmV1RegistrationId"`
	GcmRegistrationID   string `xml:"GcmRegistrationId"`
	BodyTemplate        string `xml:"BodyTemplate"`
}

func (d registrationDescription) toRegistration() Registration {
	reg := Registration{
		RegistrationID: d.RegistrationID,
		ETag:           d.ETag,
		Type:           d.XMLName.Local,
		BodyTemplate:   d.BodyTemplate,
		ExpirationTime: d.ExpirationTime,
		Tags:           splitTags(d.Tags),
	}

	switch {
	case strings.HasPrefix(d.XMLName.Local, "Apple"):
		reg.Platform = PlatformApns
		reg.PushChannel = d.DeviceToken
	case d.FcmV1RegistrationID != "":
		reg.Platform = PlatformFcm
		reg.PushChannel = d.FcmV1RegistrationID
	default:
		reg.Platform = PlatformFcm
		reg.PushChannel = d.GcmRegistrationID
	}
	return reg
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func decodeRegistrationFeed(body []byte) ([]Registration, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode registration feed: %w", err)
	}
	regs := make([]Registration, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		regs = append(regs, e.Content.Description.toRegistration())
	}
	return regs, nil
}

func decodeRegistrationEntry(body []byte) (*Registration, error) {
	var entry atomEntry
	if err := xml.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("decode registration entry: %w", err)
	}
	reg := entry.Content.Description.toRegistration()
	return &reg, nil
}

type cdata struct {
	Value string `xml:",cdata"`
}

type templateDescriptionOut struct {
	XMLName             xml.Name
	Tags                string `xml:"Tags,omitempty"`
	DeviceToken         string `xml:"DeviceToken,omitempty"`
	FcmV1RegistrationID string `xml:"FcmV1RegistrationId,omitempty"`
	BodyTemplate        cdata  `xml:"BodyTemplate"`
}

type atomContentOut struct {
	Type        string `xml:"type,attr"`
	Description templateDescriptionOut
}

type atomEntryOut struct {
	XMLName xml.Name       `xml:"http://www.w3.org/2005/Atom entry"`
	Content atomContentOut `xml:"content"`
}

// encodeTemplateRegistration builds the Atom entry for a new template registration.
func encodeTemplateRegistration(platform Platform, channel, body string, tags []string) ([]byte, error) {
	desc := templateDescriptionOut{
		Tags:         strings.Join(tags, ","),
		BodyTemplate: cdata{Value: body},
	}
	switch platform {
	case PlatformApns:
		desc.XMLName = xml.Name{Space: connectNamespace, Local: "AppleTemplateRegistrationDescription"}
		desc.DeviceToken = channel
	case PlatformFcm:
		desc.XMLName = xml.Name{Space: connectNamespace, Local: "FcmV1TemplateRegistrationDescription"}
		desc.FcmV1RegistrationID = channel
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}

	out, err := xml.Marshal(atomEntryOut{
		Content: atomContentOut{Type: "application/xml", Description: desc},
	})
	if err != nil {
		return nil, fmt.Errorf("encode registration: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type notificationDetails struct {
	XMLName        xml.Name `xml:"NotificationDetails"`
	NotificationID string   `xml:"NotificationId"`
	State          string   `xml:"State"`
	EnqueueTime    string   `xml:"EnqueueTime"`
	StartTime      string   `xml:"StartTime"`
	EndTime        string   `xml:"EndTime"`
}

func decodeNotificationDetails(body []byte) (*NotificationOutcome, error) {
	var d notificationDetails
	if err := xml.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("decode notification details: %w", err)
	}
	state := OutcomeState(strings.TrimSpace(d.State))
	if state == "" {
		state = StateUnknown
	}
	return &NotificationOutcome{
		NotificationID: d.NotificationID,
		State:          state,
		EnqueueTime:    d.EnqueueTime,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
	}, nil
}
