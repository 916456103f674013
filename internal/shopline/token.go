package shopline

import (
	"time"

	"golang.org/x/oauth2"
)

// Token is the outcome of an authorization code exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	// Expiry is zero when the platform did not send expires_in.
	Expiry time.Time
	Scope  string
}

func newToken(t *oauth2.Token) *Token {
	scope, _ := t.Extra("scope").(string)
	return &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
		Scope:        scope,
	}
}
