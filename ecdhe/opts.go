/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecdhe

// Opts configures curve preferences and the advertised protocol version
// window. The zero value is not usable; start from GetDefaultOpts.
type Opts struct {
	// Curves lists enabled curve names in preference order. Names resolve
	// against the built-in curve table.
	Curves []string `mapstructure:"curves" json:"curves" yaml:"curves"`

	// MinVersion and MaxVersion bound the protocol versions offered in the
	// supported_versions extension, for example "1.2" and "1.3". The window
	// is a consecutive range.
	MinVersion string `mapstructure:"minVersion" json:"minVersion" yaml:"minVersion"`
	MaxVersion string `mapstructure:"maxVersion" json:"maxVersion" yaml:"maxVersion"`
}

// GetDefaultOpts offers the base curves in standard preference order and a
// TLS 1.2 through 1.3 version window.
func GetDefaultOpts() *Opts {
	return &Opts{
		Curves:     []string{"secp256r1", "secp384r1"},
		MinVersion: "1.2",
		MaxVersion: "1.3",
	}
}
