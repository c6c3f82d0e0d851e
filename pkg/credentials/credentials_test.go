package credentials_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-test-*")
		Expect(err).NotTo(HaveOccurred())

		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewManager", func() {
		It("targets tokens.toml in the override directory", func() {
			Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "tokens.toml")))
		})
	})

	Describe("NewManagerAt", func() {
		It("requires a path", func() {
			_, err := credentials.NewManagerAt("")
			Expect(err).To(MatchError(ContainSubstring("path is required")))
		})

		It("creates the parent directory", func() {
			path := filepath.Join(tmpDir, "nested", "tokens.toml")
			m, err := credentials.NewManagerAt(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.GetTarget()).To(Equal(path))
			Expect(filepath.Join(tmpDir, "nested")).To(BeADirectory())
		})
	})

	Describe("NewManagerFor", func() {
		It("prefers the explicit tokens file", func() {
			path := filepath.Join(tmpDir, "custom", "clients.toml")
			m, err := credentials.NewManagerFor(tmpDir, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.GetTarget()).To(Equal(path))
		})

		It("falls back to the dot dir", func() {
			m, err := credentials.NewManagerFor(tmpDir, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Base(m.GetTarget())).To(Equal(credentials.TokensFile))
		})
	})

	Describe("Load", func() {
		It("returns empty tokens when no file exists", func() {
			tokens, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.Clients).To(BeEmpty())
		})

		It("loads existing tokens", func() {
			data := `version = 0

[clients.developer]
token = "dev-token"
scopes = ["read:data", "write:data"]
`
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			tokens, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.Clients).To(HaveKey("developer"))
			Expect(tokens.Clients["developer"].Token).To(Equal("dev-token"))
			Expect(tokens.Clients["developer"].Scopes).To(Equal([]string{"read:data", "write:data"}))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("not valid [[["), 0o600)).To(Succeed())

			tokens, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(tokens).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("persists tokens to disk with restricted permissions", func() {
			err := mgr.Save(&credentials.Tokens{
				Clients: map[string]credentials.ClientTokens{
					"developer": {Token: "t", Scopes: []string{"read:data"}},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil tokens", func() {
			Expect(mgr.Save(nil)).To(HaveOccurred())
		})

		It("leaves no temp files behind", func() {
			for range 3 {
				Expect(mgr.Save(&credentials.Tokens{
					Clients: map[string]credentials.ClientTokens{
						"developer": {Token: "t", Scopes: []string{"read:data"}},
					},
				})).To(Succeed())
			}

			entries, err := os.ReadDir(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal(credentials.TokensFile))
		})

		It("never exposes a partially written file to readers", func() {
			tokens := &credentials.Tokens{
				Clients: map[string]credentials.ClientTokens{
					"developer": {Token: "dev-token", Scopes: []string{"read:data", "write:data"}},
				},
			}
			Expect(mgr.Save(tokens)).To(Succeed())

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				for range 200 {
					Expect(mgr.Save(tokens)).To(Succeed())
				}
			}()

			for {
				select {
				case <-done:
					return
				default:
				}

				loaded, err := mgr.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded.Clients).To(HaveKey("developer"))
			}
		})
	})

	Describe("AddClient", func() {
		It("stores the given token", func() {
			token, err := mgr.AddClient("developer", "dev-token", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("dev-token"))

			ct, ok, err := mgr.GetClient("developer")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(ct.Token).To(Equal("dev-token"))
			Expect(ct.Scopes).To(Equal([]string{"read:data"}))
		})

		It("generates a token when none is given", func() {
			token, err := mgr.AddClient("developer", "", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(HavePrefix("mnemo_"))
			Expect(len(token)).To(BeNumerically(">", len("mnemo_")+16))
		})

		It("replaces an existing client's token", func() {
			_, err := mgr.AddClient("developer", "old", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())
			_, err = mgr.AddClient("developer", "new", []string{"write:data"})
			Expect(err).NotTo(HaveOccurred())

			ct, _, err := mgr.GetClient("developer")
			Expect(err).NotTo(HaveOccurred())
			Expect(ct.Token).To(Equal("new"))
			Expect(ct.Scopes).To(Equal([]string{"write:data"}))
		})

		It("rejects a token already used by another client", func() {
			_, err := mgr.AddClient("alice", "shared", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())

			_, err = mgr.AddClient("bob", "shared", []string{"read:data"})
			Expect(err).To(MatchError(ContainSubstring(`assigned to client "alice"`)))
		})

		It("requires a client id and scopes", func() {
			_, err := mgr.AddClient("", "t", []string{"read:data"})
			Expect(err).To(HaveOccurred())

			_, err = mgr.AddClient("developer", "t", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RemoveClient", func() {
		It("removes an existing client", func() {
			_, err := mgr.AddClient("developer", "t", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())

			removed, err := mgr.RemoveClient("developer")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			_, ok, err := mgr.GetClient("developer")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("is a no-op for a nonexistent client", func() {
			removed, err := mgr.RemoveClient("nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})
	})

	Describe("ListClients", func() {
		It("returns empty list when no tokens stored", func() {
			clients, err := mgr.ListClients()
			Expect(err).NotTo(HaveOccurred())
			Expect(clients).To(BeEmpty())
		})

		It("returns stored clients in sorted order", func() {
			_, err := mgr.AddClient("zed", "", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())
			_, err = mgr.AddClient("alice", "", []string{"read:data"})
			Expect(err).NotTo(HaveOccurred())

			clients, err := mgr.ListClients()
			Expect(err).NotTo(HaveOccurred())
			Expect(clients).To(Equal([]string{"alice", "zed"}))
		})
	})
})

var _ = Describe("Mask", func() {
	It("keeps the first four characters", func() {
		masked := credentials.Mask("mnemo_abcdef123456")
		Expect(masked).To(HavePrefix("mnem"))
		Expect(strings.Count(masked, "*")).To(Equal(len("mnemo_abcdef123456") - 4))
	})

	It("fully hides short tokens", func() {
		Expect(credentials.Mask("abc")).To(Equal("***"))
	})
})
