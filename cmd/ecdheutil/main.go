/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hyperledger/fabric-ecdhe/ecdhe"
	"github.com/hyperledger/fabric-ecdhe/handshake"
	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"github.com/hyperledger/fabric-lib-go/common/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/crypto/cryptobyte"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v2"
)

var (
	app     = kingpin.New("ecdheutil", "ECDHE Key Exchange Utility Tool")
	config  = app.Flag("config", "YAML file with curve and version preferences.").Short('c').String()
	logspec = app.Flag("logspec", "Logging specification, e.g. ecdhe.handshake=debug.").Default("info").String()

	curves       = app.Command("curves", "List the curves of the active registry.")
	curvesFormat = curves.Flag("format", "Output format.").Default("text").Enum("text", "yaml")

	keyshare         = app.Command("keyshare", "Work with TLS 1.3 key_share extensions.")
	keyshareGenerate = keyshare.Command("generate", "Generate a key_share extension offering every registry curve.")
	keyshareInspect  = keyshare.Command("inspect", "Decode a hex key_share extension with the lenient receive path.")
	keyshareHex      = keyshareInspect.Arg("hex", "Hex encoded extension, headers included.").Required().String()

	params        = app.Command("params", "Work with legacy server key exchange params messages.")
	paramsInspect = params.Command("inspect", "Decode a hex server params message.")
	paramsHex     = paramsInspect.Arg("hex", "Hex encoded server params message.").Required().String()

	args = os.Args[1:]
)

func main() {
	kingpin.Version("0.1.0")

	command, err := app.Parse(args)
	if err != nil {
		kingpin.Fatalf("parsing arguments: %s. Try --help", err)
	}

	if err := flogging.Global.ActivateSpec(*logspec); err != nil {
		fatalf("invalid logspec %q: %s", *logspec, err)
	}

	opts, err := loadOpts(*config)
	if err != nil {
		fatalf("%s", err)
	}
	registry, err := ecdhe.NewRegistry(opts)
	if err != nil {
		fatalf("%s", err)
	}

	var out string
	switch command {
	case curves.FullCommand():
		out, err = doListCurves(registry, *curvesFormat)
	case keyshareGenerate.FullCommand():
		out, err = doGenerateKeyShare(registry)
	case keyshareInspect.FullCommand():
		out, err = doInspectKeyShare(registry, *keyshareHex)
	case paramsInspect.FullCommand():
		out, err = doInspectServerParams(registry, *paramsHex)
	}
	if err != nil {
		fatalf("%s", err)
	}
	fmt.Print(out)
}

func fatalf(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// loadOpts returns the default options overlaid with the values of the
// config file, when one is given. Keys absent from the file keep their
// defaults.
func loadOpts(path string) (*ecdhe.Opts, error) {
	opts := ecdhe.GetDefaultOpts()
	if path == "" {
		return opts, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithMessagef(err, "reading config %s", path)
	}
	if err := v.Unmarshal(opts); err != nil {
		return nil, errors.WithMessagef(err, "unmarshaling config %s", path)
	}
	return opts, nil
}

type curveInfo struct {
	Name      string `yaml:"name"`
	ID        uint16 `yaml:"id"`
	ShareSize uint8  `yaml:"shareSize"`
	XSize     int    `yaml:"secretSize"`
}

func doListCurves(registry *ecdhe.Registry, format string) (string, error) {
	infos := make([]curveInfo, 0, registry.Len())
	for _, c := range registry.Curves() {
		infos = append(infos, curveInfo{
			Name:      c.Name,
			ID:        c.ID,
			ShareSize: c.ShareSize,
			XSize:     (c.Group().Params().BitSize + 7) / 8,
		})
	}

	if format == "yaml" {
		raw, err := yaml.Marshal(infos)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %5s %6s %7s\n", "NAME", "ID", "SHARE", "SECRET")
	for _, info := range infos {
		fmt.Fprintf(&b, "%-12s %5d %6d %7d\n", info.Name, info.ID, info.ShareSize, info.XSize)
	}
	return b.String(), nil
}

func doGenerateKeyShare(registry *ecdhe.Registry) (string, error) {
	ext := handshake.NewKeyShareExtension(registry, nil)
	slots := handshake.NewKeyShareSlots(registry)
	defer slots.Dispose()

	var b cryptobyte.Builder
	if err := ext.Send(slots, &b); err != nil {
		return "", err
	}
	raw, err := b.Bytes()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x\n", raw), nil
}

func doInspectKeyShare(registry *ecdhe.Registry, hexExt string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexExt))
	if err != nil {
		return "", errors.WithMessage(err, "decoding hex")
	}

	s := cryptobyte.String(raw)
	var extType, extDataLen uint16
	if !s.ReadUint16(&extType) || !s.ReadUint16(&extDataLen) {
		return "", errors.New("extension headers are truncated")
	}
	if extType != handshake.ExtensionTypeKeyShare {
		return "", errors.Errorf("extension type %d is not key_share (%d)", extType, handshake.ExtensionTypeKeyShare)
	}

	counts := map[string]float64{}
	m := &handshake.Metrics{
		SharesSent:     &tallyCounter{key: "sent", counts: counts},
		SharesReceived: &tallyCounter{key: "received", counts: counts},
		SharesSkipped:  &tallyCounter{key: "skipped", counts: counts},
		RecvFailures:   &tallyCounter{key: "failures", counts: counts},
	}
	ext := handshake.NewKeyShareExtension(registry, m)
	slots := handshake.NewKeyShareSlots(registry)
	defer slots.Dispose()
	recvErr := ext.Recv(slots, &s)

	var b strings.Builder
	fmt.Fprintf(&b, "extension data: %d bytes declared, %d present\n", extDataLen, len(raw)-4)
	for i := 0; i < registry.Len(); i++ {
		curve := registry.At(i)
		state := "no share"
		if slots.At(i).Negotiated() {
			state = fmt.Sprintf("accepted a %d byte share", curve.ShareSize)
		}
		fmt.Fprintf(&b, "%-12s (id %d): %s\n", curve.Name, curve.ID, state)
	}
	for _, key := range sortedKeys(counts) {
		fmt.Fprintf(&b, "%s: %d\n", key, int(counts[key]))
	}
	if recvErr != nil {
		fmt.Fprintf(&b, "fatal: %s\n", recvErr)
	}
	return b.String(), nil
}

func doInspectServerParams(registry *ecdhe.Registry, hexMsg string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexMsg))
	if err != nil {
		return "", errors.WithMessage(err, "decoding hex")
	}

	s := cryptobyte.String(raw)
	parsed, err := handshake.ReadServerParams(&s)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "curve id: %d\n", binary.BigEndian.Uint16(parsed.CurveID))
	fmt.Fprintf(&b, "point: %d bytes\n", len(parsed.Point))
	fmt.Fprintf(&b, "signed span: %d bytes\n", len(parsed.All))

	kp, err := handshake.ParseServerParams(registry, parsed)
	if err != nil {
		fmt.Fprintf(&b, "verdict: %s\n", err)
		return b.String(), nil
	}
	defer kp.Dispose()
	fmt.Fprintf(&b, "verdict: valid %s point\n", kp.Curve().Name)
	return b.String(), nil
}

// tallyCounter is a metrics.Counter that accumulates into a shared map so
// the inspect commands can report what the lenient receive path did. Label
// values extend the key, so skips group by reason.
type tallyCounter struct {
	key    string
	counts map[string]float64
}

func (c *tallyCounter) With(labelValues ...string) metrics.Counter {
	key := c.key
	for i := 1; i < len(labelValues); i += 2 {
		key += " " + labelValues[i]
	}
	return &tallyCounter{key: key, counts: c.counts}
}

func (c *tallyCounter) Add(delta float64) {
	c.counts[c.key] += delta
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
