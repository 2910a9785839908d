/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyexchange

import (
	"github.com/hyperledger/fabric-ecdhe/ecdhe"
	"github.com/hyperledger/fabric-ecdhe/handshake"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/cryptobyte"
)

var _ = Describe("ECDHE key agreement", func() {
	var registry *ecdhe.Registry

	BeforeEach(func() {
		var err error
		registry, err = ecdhe.NewRegistry(ecdhe.GetDefaultOpts())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("TLS 1.3 flow", func() {
		It("agrees on a version and derives the same secret on both sides", func() {
			By("offering supported versions in the client hello")
			window, err := handshake.VersionWindowFromOpts(ecdhe.GetDefaultOpts())
			Expect(err).NotTo(HaveOccurred())

			var versionsExt cryptobyte.Builder
			handshake.SendSupportedVersions(window, &versionsExt)

			By("offering one key share per registry curve")
			ext := handshake.NewKeyShareExtension(registry, nil)
			clientSlots := handshake.NewKeyShareSlots(registry)
			defer clientSlots.Dispose()

			var keyShareExt cryptobyte.Builder
			Expect(ext.Send(clientSlots, &keyShareExt)).To(Succeed())

			By("selecting TLS 1.3 on the server")
			versionBody := cryptobyte.String(versionsExt.BytesOrPanic()[4:])
			chosen, peerMax, err := handshake.ReceiveSupportedVersions(window, &versionBody)
			Expect(err).NotTo(HaveOccurred())
			Expect(chosen).To(Equal(handshake.VersionTLS13))
			Expect(peerMax).To(Equal(handshake.VersionTLS13))

			By("accepting the client shares on the server")
			serverSlots := handshake.NewKeyShareSlots(registry)
			defer serverSlots.Dispose()
			shareBody := cryptobyte.String(keyShareExt.BytesOrPanic()[4:])
			Expect(ext.Recv(serverSlots, &shareBody)).To(Succeed())

			clientShare, ok := serverSlots.FirstPopulated()
			Expect(ok).To(BeTrue())
			curve := clientShare.Curve()
			Expect(curve.ID).To(Equal(ecdhe.CurveIDSecp256r1))

			By("deriving the server secret and answering with the server share")
			serverPair, err := ecdhe.Generate(curve)
			Expect(err).NotTo(HaveOccurred())
			defer serverPair.Dispose()

			serverSecret, err := serverPair.SharedSecret(clientShare)
			Expect(err).NotTo(HaveOccurred())

			serverPoint, err := serverPair.PublicPoint()
			Expect(err).NotTo(HaveOccurred())

			var serverHello cryptobyte.Builder
			serverHello.AddUint16(curve.ID)
			serverHello.AddUint16(uint16(len(serverPoint)))
			serverHello.AddBytes(serverPoint)

			By("completing the exchange on the client")
			entry := cryptobyte.String(serverHello.BytesOrPanic())
			var group, pointLen uint16
			var point []byte
			Expect(entry.ReadUint16(&group)).To(BeTrue())
			Expect(entry.ReadUint16(&pointLen)).To(BeTrue())
			Expect(entry.ReadBytes(&point, int(pointLen))).To(BeTrue())
			Expect(group).To(Equal(curve.ID))

			serverPeer := &ecdhe.KeyPair{}
			serverPeer.Negotiate(curve)
			Expect(serverPeer.SetPeerPublicPoint(point)).To(Succeed())

			clientSecret, err := clientSlots.At(0).SharedSecret(serverPeer)
			Expect(err).NotTo(HaveOccurred())

			Expect(clientSecret).To(Equal(serverSecret))
			Expect(clientSecret).To(HaveLen(32))
		})

		It("falls back to the next curve when the preferred share is damaged", func() {
			ext := handshake.NewKeyShareExtension(registry, nil)
			clientSlots := handshake.NewKeyShareSlots(registry)
			defer clientSlots.Dispose()

			var b cryptobyte.Builder
			Expect(ext.Send(clientSlots, &b)).To(Succeed())
			raw := b.BytesOrPanic()

			By("damaging the secp256r1 point in transit")
			for i := 10; i < 75; i++ {
				raw[i] = 0xff
			}

			serverSlots := handshake.NewKeyShareSlots(registry)
			defer serverSlots.Dispose()
			body := cryptobyte.String(raw[4:])
			Expect(ext.Recv(serverSlots, &body)).To(Succeed())

			By("negotiating the surviving curve")
			clientShare, ok := serverSlots.FirstPopulated()
			Expect(ok).To(BeTrue())
			curve := clientShare.Curve()
			Expect(curve.ID).To(Equal(ecdhe.CurveIDSecp384r1))

			serverPair, err := ecdhe.Generate(curve)
			Expect(err).NotTo(HaveOccurred())
			defer serverPair.Dispose()

			serverSecret, err := serverPair.SharedSecret(clientShare)
			Expect(err).NotTo(HaveOccurred())

			clientSecret, err := clientSlots.At(1).SharedSecret(serverPair)
			Expect(err).NotTo(HaveOccurred())

			Expect(clientSecret).To(Equal(serverSecret))
			Expect(clientSecret).To(HaveLen(48))
		})
	})

	Describe("legacy flow", func() {
		It("derives the same secret through the server params exchange", func() {
			By("selecting a curve from the client's candidate list")
			candidates := []byte{0x00, 0x1d, 0x00, 0x18, 0x00, 0x17}
			curve, err := registry.FindSupported(candidates)
			Expect(err).NotTo(HaveOccurred())
			Expect(curve.Name).To(Equal("secp256r1"))

			By("generating the server pair and writing the params message")
			serverPair, err := ecdhe.Generate(curve)
			Expect(err).NotTo(HaveOccurred())
			defer serverPair.Dispose()

			msg, err := handshake.MarshalServerParams(serverPair)
			Expect(err).NotTo(HaveOccurred())

			By("parsing the params on the client")
			s := cryptobyte.String(msg)
			raw, err := handshake.ReadServerParams(&s)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw.All).To(Equal(msg))

			serverPub, err := handshake.ParseServerParams(registry, raw)
			Expect(err).NotTo(HaveOccurred())
			defer serverPub.Dispose()

			By("completing on the client and answering with its point")
			var reply cryptobyte.Builder
			clientSecret, err := handshake.ComputeSharedSecretAsClient(serverPub, &reply)
			Expect(err).NotTo(HaveOccurred())

			By("completing on the server with the retained pair")
			in := cryptobyte.String(reply.BytesOrPanic())
			serverSecret, err := handshake.ComputeSharedSecretAsServer(serverPair, &in)
			Expect(err).NotTo(HaveOccurred())

			Expect(clientSecret).To(Equal(serverSecret))
			Expect(clientSecret).To(HaveLen(32))
		})
	})
})
