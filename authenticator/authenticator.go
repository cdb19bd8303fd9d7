/*
 * authgate
 *
 * Copyright 2021-2030 The NeoDB Authors.
 * Code is licensed under the GPLv3.
 *
 */

// Package authenticator runs the catalog-lookup, reverse-DNS-retry,
// password-check, database-existence sequence that turns one login
// attempt into a structured Result.
package authenticator

import (
	"context"
	"time"

	"github.com/beefsack/go-rate"

	"github.com/sealdb/mysqlstack/xlog"

	"github.com/sealdb/authgate/authcrypt"
	"github.com/sealdb/authgate/catalog"
	"github.com/sealdb/authgate/metrics"
)

// Outcome is the disposition of one authentication attempt.
type Outcome int

const (
	// Ok means the credentials and database are both valid.
	Ok Outcome = iota
	// BadPassword means the user/host/db matched a catalog row but the
	// password check failed.
	BadPassword
	// UnknownUser means no catalog row matched, by client IP or by the
	// reverse-DNS hostname fallback.
	UnknownUser
	// NoSuchDatabase means authentication succeeded but the requested
	// database does not exist.
	NoSuchDatabase
)

// String names an Outcome for logging and metrics labels.
func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case BadPassword:
		return "bad_password"
	case UnknownUser:
		return "unknown_user"
	case NoSuchDatabase:
		return "no_such_database"
	default:
		return "unknown"
	}
}

// Request is one login attempt.
type Request struct {
	User           string
	ClientIP       string
	RequestedDB    string
	ClientToken    []byte
	ServerScramble []byte
}

// Result is the structured outcome of Authenticate; never an error value,
// per the error handling design (authentication failures are data, not
// exceptions).
type Result struct {
	Outcome Outcome

	// PasswordSHA1 is SHA1(password), valid only when Outcome == Ok; the
	// host replays it to the backend to complete the handshake.
	PasswordSHA1 []byte

	// UsedPassword reports whether the client supplied a non-empty token,
	// for the canonical "Using password: YES/NO" error text.
	UsedPassword bool
}

// Resolver does reverse DNS; satisfied by *net.Resolver in production and
// faked in tests.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Authenticator wires a Catalog to a Resolver, with a rate limiter
// bounding how often the (slow, blocking) reverse-DNS fallback runs per
// process.
type Authenticator struct {
	catalog  *catalog.Catalog
	resolver Resolver
	log      *xlog.Log

	hostnameFallback bool
	limiter          *rate.RateLimiter
}

// New builds an Authenticator. hostnameFallback gates whether a catalog
// miss by IP retries with the reverse-DNS hostname (Config.Catalog.HostnameFallback).
// dnsLookupsPerSecond bounds how many reverse lookups run per second,
// across all callers, so a flood of unknown-user attempts can't turn into
// a flood of resolver traffic.
func New(cat *catalog.Catalog, resolver Resolver, log *xlog.Log, hostnameFallback bool, dnsLookupsPerSecond int) *Authenticator {
	if dnsLookupsPerSecond <= 0 {
		dnsLookupsPerSecond = 50
	}
	return &Authenticator{
		catalog:          cat,
		resolver:         resolver,
		log:              log,
		hostnameFallback: hostnameFallback,
		limiter:          rate.New(dnsLookupsPerSecond, time.Second),
	}
}

// Authenticate runs the full lookup/verify sequence for one request.
func (a *Authenticator) Authenticate(ctx context.Context, req Request) Result {
	usedPassword := len(req.ClientToken) > 0

	passwordHash, matched := a.catalog.Lookup(req.User, req.ClientIP, req.RequestedDB, "")
	if !matched {
		if hostname := a.reverseLookup(ctx, req.ClientIP); hostname != "" {
			passwordHash, matched = a.catalog.Lookup(req.User, req.ClientIP, req.RequestedDB, hostname)
		}
	}
	if !matched {
		return Result{Outcome: UnknownUser, UsedPassword: usedPassword}
	}

	ok, sha1Password, err := authcrypt.CheckNativePassword(passwordHash, req.ClientToken, req.ServerScramble)
	if err != nil {
		a.log.Error("authenticator.password.check.user[%s].error:%+v", req.User, err)
		return Result{Outcome: BadPassword, UsedPassword: usedPassword}
	}
	if !ok {
		return Result{Outcome: BadPassword, UsedPassword: usedPassword}
	}

	if req.RequestedDB != "" && !a.catalog.DatabaseExists(req.RequestedDB) {
		return Result{Outcome: NoSuchDatabase, UsedPassword: usedPassword}
	}

	return Result{Outcome: Ok, PasswordSHA1: sha1Password, UsedPassword: usedPassword}
}

// reverseLookup resolves clientIP to a hostname, returning "" on any
// failure, rate-limit rejection, or disabled fallback. It never returns an
// error: a resolver hiccup degrades to UnknownUser, it doesn't fail the
// request differently.
func (a *Authenticator) reverseLookup(ctx context.Context, clientIP string) string {
	if !a.hostnameFallback {
		return ""
	}
	if ok, _ := a.limiter.Try(); !ok {
		a.log.Warning("authenticator.reverse_dns.rate_limited.ip[%s]", clientIP)
		return ""
	}

	names, err := a.resolver.LookupAddr(ctx, clientIP)
	if err != nil || len(names) == 0 {
		return ""
	}
	metrics.ReverseDNSFallbackTotal.Inc()
	return names[0]
}
