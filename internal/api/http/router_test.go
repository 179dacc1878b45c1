package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/qr-service/internal/database/memory"
	"github.com/vadimbarashkov/qr-service/internal/probe"
	"github.com/vadimbarashkov/qr-service/internal/qrcode"
	"github.com/vadimbarashkov/qr-service/internal/safebrowsing"
	"github.com/vadimbarashkov/qr-service/internal/service"
)

// RouterTestSuite runs the full pipeline over the memory store against fake
// Safe Browsing and target servers.
type RouterTestSuite struct {
	suite.Suite
	safeBrowsing *httptest.Server
	site         *httptest.Server
	repo         *memory.QRCodeRepository
	server       *httptest.Server
	e            *httpexpect.Expect
}

func (suite *RouterTestSuite) SetupSuite() {
	suite.safeBrowsing = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ThreatInfo struct {
				ThreatEntries []safebrowsing.ThreatEntry `json:"threatEntries"`
			} `json:"threatInfo"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var matches []safebrowsing.ThreatMatch
		for _, entry := range req.ThreatInfo.ThreatEntries {
			switch {
			case strings.Contains(entry.URL, "/phishing"):
				matches = append(matches, safebrowsing.ThreatMatch{
					ThreatType:      "SOCIAL_ENGINEERING",
					PlatformType:    "ANY_PLATFORM",
					ThreatEntryType: "URL",
					Threat:          entry,
				})
			case strings.Contains(entry.URL, "/outage"):
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"matches": matches})
	}))

	suite.site = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func (suite *RouterTestSuite) TearDownSuite() {
	suite.safeBrowsing.Close()
	suite.site.Close()
}

func (suite *RouterTestSuite) SetupSubTest() {
	suite.repo = memory.NewQRCodeRepository()

	svc := service.NewQRService(
		suite.repo,
		safebrowsing.NewClient("test-key", safebrowsing.WithEndpoint(suite.safeBrowsing.URL)),
		probe.New(),
		qrcode.NewEncoder(),
	)

	logger := httplog.NewLogger("", httplog.Options{Writer: io.Discard})

	suite.server = httptest.NewServer(NewRouter(logger, svc))
	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *RouterTestSuite) TearDownSubTest() {
	suite.server.Close()
}

func (suite *RouterTestSuite) siteURL(path string) string {
	return fmt.Sprintf("%s%s", suite.site.URL, path)
}

func (suite *RouterTestSuite) TestGenerateQR() {
	suite.Run("idempotent", func() {
		u := suite.siteURL("/page")

		first := suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": u}).
			Expect().
			Status(http.StatusOK).
			HasContentType("image/png").
			Body().Raw()

		second := suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": u}).
			Expect().
			Status(http.StatusOK).
			Body().Raw()

		suite.Equal(first, second)
		suite.True(strings.HasPrefix(first, "\x89PNG"))
		suite.Equal(1, suite.repo.Len())
	})

	suite.Run("unsafe", func() {
		suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": suite.siteURL("/phishing")}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Unsafe URL detected").
			Value("matches").Array().Length().IsEqual(1)

		suite.Zero(suite.repo.Len())
	})

	suite.Run("safety check unavailable", func() {
		suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": suite.siteURL("/outage")}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Unsafe URL detected")

		suite.Zero(suite.repo.Len())
	})

	suite.Run("unreachable", func() {
		suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": suite.siteURL("/missing")}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "URL does not exist")

		suite.Zero(suite.repo.Len())
	})

	suite.Run("invalid", func() {
		suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": "example.com"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("error", "Invalid URL")

		suite.Zero(suite.repo.Len())
	})
}

func (suite *RouterTestSuite) TestDeleteQR() {
	suite.Run("delete then generate", func() {
		u := suite.siteURL("/page")

		suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": u}).
			Expect().
			Status(http.StatusOK)

		suite.e.DELETE("/delete-qr").
			WithQuery("url", u).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("success", true)

		suite.e.DELETE("/delete-qr").
			WithQuery("url", u).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("error", "URL not found")

		suite.e.POST("/generate-qr").
			WithJSON(map[string]string{"url": u}).
			Expect().
			Status(http.StatusOK)

		suite.Equal(1, suite.repo.Len())
	})
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
