// Package gateway proxies public path prefixes to the upstream services.
package gateway

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emporia-labs/emporia-backend/internal/config"
)

// Prefixes are the public path prefixes, in mount order.
var Prefixes = []string{"auth", "customer", "employee", "category", "product"}

type Route struct {
	Prefix   string
	Upstream *url.URL
}

// routeFile is the YAML route table:
//
//	routes:
//	  auth: http://iam:8081/auth
//	  product: http://catalog:8082/products
type routeFile struct {
	Routes map[string]string `yaml:"routes"`
}

// LoadRoutes resolves the upstream of every known prefix, from the route file
// when one is configured and from the environment otherwise. Prefixes without
// an upstream are skipped with a warning.
func LoadRoutes(cfg config.GatewayConfig, log *slog.Logger) ([]Route, error) {
	upstreams, err := upstreamTable(cfg)
	if err != nil {
		return nil, err
	}

	var routes []Route
	for _, prefix := range Prefixes {
		raw := upstreams[prefix]
		if raw == "" {
			log.Warn("no upstream configured, prefix disabled", "prefix", prefix)
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid upstream %q for prefix %s", raw, prefix)
		}
		routes = append(routes, Route{Prefix: prefix, Upstream: u})
	}
	return routes, nil
}

func upstreamTable(cfg config.GatewayConfig) (map[string]string, error) {
	if cfg.RoutesFile == "" {
		return map[string]string{
			"auth":     cfg.AuthServiceURL,
			"customer": cfg.CustomerServiceURL,
			"employee": cfg.EmployeeServiceURL,
			"category": cfg.CategoryServiceURL,
			"product":  cfg.ProductServiceURL,
		}, nil
	}

	data, err := os.ReadFile(cfg.RoutesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	var file routeFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("YAML parse error in %s: %w", cfg.RoutesFile, err)
	}

	known := make(map[string]bool, len(Prefixes))
	for _, p := range Prefixes {
		known[p] = true
	}
	for prefix := range file.Routes {
		if !known[prefix] {
			return nil, fmt.Errorf("unknown prefix %q in %s", prefix, cfg.RoutesFile)
		}
	}
	return file.Routes, nil
}
