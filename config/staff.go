package config

import (
	"fmt"
	"strings"
)

var staffKeys map[string]string

// loadStaffKeys parses staff_keys entries of the form "merchantID:apiKey".
func loadStaffKeys() error {
	staffKeys = make(map[string]string)
	for _, entry := range GetConfig().StaffKeys {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("staff_keys value has invalid format, want merchantID:apiKey")
		}
		staffKeys[parts[1]] = parts[0]
	}
	return nil
}

// StaffMerchant returns the merchant a staff API key belongs to.
func StaffMerchant(apiKey string) (string, bool) {
	merchantID, present := staffKeys[apiKey]
	return merchantID, present
}
