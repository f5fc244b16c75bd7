package passkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	barcodeFormatQR  = "PKBarcodeFormatQR"
	barcodeEncoding  = "iso-8859-1"
	rewardReadyValue = "🎁 REWARD READY!"
	webServicePath   = "/passkit/v1"
)

type PassJSON struct {
	FormatVersion       int       `json:"formatVersion"`
	PassTypeIdentifier  string    `json:"passTypeIdentifier"`
	TeamIdentifier      string    `json:"teamIdentifier"`
	SerialNumber        string    `json:"serialNumber"`
	OrganizationName    string    `json:"organizationName"`
	Description         string    `json:"description"`
	ForegroundColor     string    `json:"foregroundColor"`
	BackgroundColor     string    `json:"backgroundColor"`
	LabelColor          string    `json:"labelColor"`
	StoreCard           StoreCard `json:"storeCard"`
	Barcode             Barcode   `json:"barcode"`
	Barcodes            []Barcode `json:"barcodes"`
	WebServiceURL       string    `json:"webServiceURL,omitempty"`
	AuthenticationToken string    `json:"authenticationToken,omitempty"`
}

type StoreCard struct {
	HeaderFields    []Field `json:"headerFields"`
	SecondaryFields []Field `json:"secondaryFields"`
	BackFields      []Field `json:"backFields"`
}

type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
}

// SerialNumber is the pass serial for a member, shared by the bundle and the web service.
func SerialNumber(memberID string) string {
	return "apple-" + memberID
}

// MemberIDFromSerial reverses SerialNumber.
func MemberIDFromSerial(serial string) (string, bool) {
	id, ok := strings.CutPrefix(serial, "apple-")
	return id, ok && id != ""
}

func newPassJSON(input Input, cfg Config) PassJSON {
	goal := input.Merchant.RewardGoal

	stamps := fmt.Sprintf("%d / %d", input.Member.StampCount, goal)
	if input.Member.RewardAvailable {
		stamps = rewardReadyValue
	}

	stampURL := fmt.Sprintf("%s/stamp/%s", cfg.WebServiceURL, input.Member.ID)
	barcode := Barcode{Format: barcodeFormatQR, Message: stampURL, MessageEncoding: barcodeEncoding}

	pass := PassJSON{
		FormatVersion:      1,
		PassTypeIdentifier: cfg.PassTypeID,
		TeamIdentifier:     cfg.TeamID,
		SerialNumber:       SerialNumber(input.Member.ID),
		OrganizationName:   input.Merchant.Name,
		Description:        input.Merchant.Name + " Loyalty Card",
		ForegroundColor:    HexToRGB(input.Branding.LabelColor),
		BackgroundColor:    HexToRGB(input.Branding.Background.Color),
		LabelColor:         HexToRGB(input.Branding.LabelColor),
		StoreCard: StoreCard{
			HeaderFields:    []Field{{Key: "stamps", Label: "STAMPS", Value: stamps}},
			SecondaryFields: []Field{},
			BackFields: []Field{
				{
					Key:   "terms",
					Label: "Terms & Conditions",
					Value: fmt.Sprintf("Collect %d stamps to earn a free reward. One stamp per visit. "+
						"Stamps expire after 12 months of inactivity.", goal),
				},
				{Key: "merchant", Label: "About", Value: input.Merchant.Name},
			},
		},
		Barcode:  barcode,
		Barcodes: []Barcode{barcode},
	}

	if input.MemberName != "" {
		pass.StoreCard.SecondaryFields = append(pass.StoreCard.SecondaryFields,
			Field{Key: "member", Label: "MEMBER", Value: input.MemberName})
	}

	// Wallet refuses web services it cannot reach from the device.
	if cfg.WebServiceURL != "" && !IsLocalURL(cfg.WebServiceURL) {
		pass.WebServiceURL = strings.TrimSuffix(cfg.WebServiceURL, "/") + webServicePath
		pass.AuthenticationToken = input.AuthToken
	}

	return pass
}

// Marshal renders pass.json with two-space indentation and literal "&", "<" and ">".
func (p PassJSON) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var hexColorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{2})([0-9a-fA-F]{2})([0-9a-fA-F]{2})$`)

// HexToRGB converts #rrggbb to the "rgb(r, g, b)" form pass.json expects. Anything else is black.
func HexToRGB(hex string) string {
	m := hexColorPattern.FindStringSubmatch(hex)
	if m == nil {
		return "rgb(0, 0, 0)"
	}

	rgb := make([]uint64, 3)
	for i := range rgb {
		rgb[i], _ = strconv.ParseUint(m[i+1], 16, 8)
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb[0], rgb[1], rgb[2])
}

// IsLocalURL reports URLs pointing at localhost, a loopback or unspecified address, or an mDNS host.
func IsLocalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return strings.Contains(raw, "localhost")
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsUnspecified()
	}
	return false
}
