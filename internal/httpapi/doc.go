// Package httpapi mounts the service's HTTP routes on a chi router. Handlers
// decode and validate input, call the engine, and write the session cookie;
// they make no authentication decisions of their own.
package httpapi
