package tokencmder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mnemo/pkg/auth"
	"github.com/papercomputeco/mnemo/pkg/auth/jwt"
	"github.com/papercomputeco/mnemo/pkg/config"
	"github.com/papercomputeco/mnemo/pkg/credentials"
)

var _ = Describe("NewTokenCmd", func() {
	It("has add, remove, list, and issue subcommands", func() {
		cmd := NewTokenCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("add", "remove", "list", "issue"))
	})

	It("defaults to every known scope", func() {
		Expect(defaultScopes()).To(Equal([]string{"read:data", "write:data"}))
	})
})

var _ = Describe("token management", func() {
	var (
		mgr *credentials.Manager
		out *bytes.Buffer
	)

	BeforeEach(func() {
		var err error
		mgr, err = credentials.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
	})

	Describe("runAdd", func() {
		It("generates and prints a token", func() {
			Expect(runAdd(out, mgr, "agent-a", "", []string{"read:data"})).To(Succeed())

			ct, ok, err := mgr.GetClient("agent-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(ct.Token).To(HavePrefix("mnemo_"))
			Expect(ct.Scopes).To(Equal([]string{"read:data"}))
			Expect(out.String()).To(ContainSubstring(ct.Token))
		})

		It("keeps an explicit token", func() {
			Expect(runAdd(out, mgr, "ci", "ci-token-1234", []string{"write:data"})).To(Succeed())

			ct, _, err := mgr.GetClient("ci")
			Expect(err).NotTo(HaveOccurred())
			Expect(ct.Token).To(Equal("ci-token-1234"))
		})

		It("rejects unknown scopes without writing", func() {
			err := runAdd(out, mgr, "agent-a", "", []string{"admin"})
			Expect(err).To(MatchError(ContainSubstring("unknown scope")))

			ids, err := mgr.ListClients()
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("runRemove", func() {
		It("removes a registered client", func() {
			Expect(runAdd(out, mgr, "agent-a", "", []string{"read:data"})).To(Succeed())
			Expect(runRemove(out, mgr, "agent-a")).To(Succeed())

			_, ok, err := mgr.GetClient("agent-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("errors for unknown clients", func() {
			Expect(runRemove(out, mgr, "ghost")).To(MatchError(ContainSubstring("no token registered")))
		})
	})

	Describe("runList", func() {
		It("reports when nothing is registered", func() {
			Expect(runList(out, mgr)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No clients registered"))
		})

		It("lists clients with masked tokens", func() {
			Expect(runAdd(&bytes.Buffer{}, mgr, "beta", "beta-token-abcdef", []string{"read:data"})).To(Succeed())
			Expect(runAdd(&bytes.Buffer{}, mgr, "alpha", "alpha-token-abcdef", []string{"read:data", "write:data"})).To(Succeed())

			Expect(runList(out, mgr)).To(Succeed())
			text := out.String()
			Expect(text).NotTo(ContainSubstring("alpha-token-abcdef"))
			Expect(text).To(ContainSubstring("alph"))
			Expect(strings.Index(text, "alpha")).To(BeNumerically("<", strings.Index(text, "beta")))
			Expect(text).To(ContainSubstring("read:data, write:data"))
		})
	})
})

var _ = Describe("runIssue", func() {
	const secret = "0123456789abcdef0123456789abcdef"

	It("signs a token the jwt registry accepts", func() {
		out := &bytes.Buffer{}
		c := config.AuthConfig{JWTSecret: secret, JWTIssuer: "mnemo"}
		Expect(runIssue(out, c, "agent-a", []string{"read:data"}, time.Hour)).To(Succeed())

		registry, err := jwt.New(jwt.Config{Secret: []byte(secret), Issuer: "mnemo"})
		Expect(err).NotTo(HaveOccurred())

		rec, err := registry.Resolve(context.Background(), strings.TrimSpace(out.String()))
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.ClientID).To(Equal("agent-a"))
		Expect(rec.HasScope(auth.ScopeRead)).To(BeTrue())
		Expect(rec.HasScope(auth.ScopeWrite)).To(BeFalse())
	})

	It("requires a secret", func() {
		err := runIssue(&bytes.Buffer{}, config.AuthConfig{}, "agent-a", defaultScopes(), time.Hour)
		Expect(err).To(MatchError(ContainSubstring("jwt_secret is not set")))
	})

	It("rejects unknown scopes", func() {
		err := runIssue(&bytes.Buffer{}, config.AuthConfig{JWTSecret: secret}, "agent-a", []string{"root"}, time.Hour)
		Expect(err).To(MatchError(ContainSubstring("unknown scope")))
	})
})

var _ = Describe("Token command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "mnemo-token-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".mnemo"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("writes tokens.toml in the local .mnemo directory", func() {
		cmd := NewTokenCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"add", "agent-a", "--scopes", "read:data"})
		Expect(cmd.Execute()).To(Succeed())

		_, err := os.Stat(filepath.Join(tmpDir, ".mnemo", "tokens.toml"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("honors auth.tokens_file from the environment", func() {
		path := filepath.Join(tmpDir, "shared", "clients.toml")
		GinkgoT().Setenv("MNEMO_AUTH_TOKENS_FILE", path)

		cmd := NewTokenCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"add", "agent-a"})
		Expect(cmd.Execute()).To(Succeed())

		_, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a client id", func() {
		cmd := NewTokenCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"add"})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
