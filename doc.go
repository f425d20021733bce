// Package bandmate is the domain core of the band-management service:
// models, repositories, password and token services, and the
// authenticator used by the HTTP layer in package server and consumed
// remotely by package client.
package bandmate
