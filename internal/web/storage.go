//go:build js && wasm

// Package web binds the application to the browser page.
package web

import (
	"fmt"
	"syscall/js"
)

// LocalStorage implements tokenstore.Storage over window.localStorage.
type LocalStorage struct {
	store js.Value
}

// NewLocalStorage returns the page's localStorage.
func NewLocalStorage() (*LocalStorage, error) {
	s := js.Global().Get("localStorage")
	if s.IsUndefined() || s.IsNull() {
		return nil, fmt.Errorf("localStorage is not available")
	}
	return &LocalStorage{store: s}, nil
}

func (l *LocalStorage) Get(key string) (v string, ok bool, err error) {
	defer recoverJS(&err)
	item := l.store.Call("getItem", key)
	if item.IsNull() || item.IsUndefined() {
		return "", false, nil
	}
	return item.String(), true, nil
}

func (l *LocalStorage) Set(key, value string) (err error) {
	defer recoverJS(&err)
	l.store.Call("setItem", key, value)
	return nil
}

func (l *LocalStorage) Remove(key string) (err error) {
	defer recoverJS(&err)
	l.store.Call("removeItem", key)
	return nil
}

// recoverJS turns a thrown JS exception into an error.
func recoverJS(err *error) {
	if r := recover(); r != nil {
		if jsErr, ok := r.(js.Error); ok {
			*err = fmt.Errorf("storage error: %s", jsErr.Error())
			return
		}
		*err = fmt.Errorf("storage error: %v", r)
	}
}
