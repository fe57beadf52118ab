package ratelimit

import (
	"strings"
	"time"
)

// Class groups endpoints that share a tier.
type Class string

const (
	ClassUpload  Class = "upload"
	ClassAuth    Class = "auth"
	ClassGeneral Class = "general"
)

// Default tiers. Deployments override them through ParseTierFromEnv.
var (
	UploadTier  = Tier{MaxRequests: 10, Window: time.Hour}
	AuthTier    = Tier{MaxRequests: 5, Window: time.Hour}
	GeneralTier = Tier{MaxRequests: 1000, Window: time.Hour}
)

// Rule maps a path prefix to a class.
type Rule struct {
	Prefix string
	Class  Class
}

// Policy classifies request paths and holds the tier for each class. Rules
// are tried in order and the first matching prefix wins.
type Policy struct {
	Rules   []Rule
	Default Class
	Tiers   map[Class]Tier
}

// DefaultPolicy returns the stock classification with the given tiers.
func DefaultPolicy(upload, auth, general Tier) Policy {
	return Policy{
		Rules: []Rule{
			{Prefix: "/documents/upload", Class: ClassUpload},
			{Prefix: "/auth/", Class: ClassAuth},
		},
		Default: ClassGeneral,
		Tiers: map[Class]Tier{
			ClassUpload:  upload,
			ClassAuth:    auth,
			ClassGeneral: general,
		},
	}
}

// Classify returns the class and tier for path.
func (p Policy) Classify(path string) (Class, Tier) {
	class := p.Default
	for _, r := range p.Rules {
		if strings.HasPrefix(path, r.Prefix) {
			class = r.Class
			break
		}
	}
	return class, p.Tiers[class]
}

// Validate checks every tier the policy can return.
func (p Policy) Validate() error {
	classes := []Class{p.Default}
	for _, r := range p.Rules {
		classes = append(classes, r.Class)
	}
	for _, c := range classes {
		if err := p.Tiers[c].Validate(); err != nil {
			return err
		}
	}
	return nil
}
