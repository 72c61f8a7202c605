// Package fetch downloads the registry document.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/refaktor/vkgen/registry"
)

// LockSuffix is appended to the destination path to name the marker
// that exists while a download is in progress.
const LockSuffix = ".incomplete"

type Registry struct {
	// URL of vk.xml.
	URL string
	// File to place the document into.
	Dest string
	// Defaults to http.DefaultClient.
	Client *http.Client
	// Options the downloaded document must load with. vk.xml defines
	// some entries once per API, so they need an exclusion.
	Options registry.Options
}

// Have reports whether a complete copy of the registry exists at Dest.
func (r *Registry) Have() (have bool, err error) {
	info, err := os.Stat(r.Dest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("expected %v to be a regular file", r.Dest)
	}

	if lockInfo, err := os.Stat(r.Dest + LockSuffix); err == nil {
		if !lockInfo.Mode().IsRegular() {
			return false, fmt.Errorf("expected %v to be a regular file", r.Dest+LockSuffix)
		}
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	return true, nil
}

// Get downloads the registry and replaces Dest with it. The document is
// checked to load as a registry before anything is replaced.
func (r *Registry) Get(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return err
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("get %v: %v: %v", r.URL, resp.Status, string(data))
		}
		return fmt.Errorf("get %v: %v", r.URL, resp.Status)
	}

	if _, err := registry.Load(bytes.NewReader(data), r.Options); err != nil {
		return fmt.Errorf("get %v: %w", r.URL, err)
	}

	if err := os.MkdirAll(filepath.Dir(r.Dest), os.ModePerm); err != nil {
		return err
	}

	lock := r.Dest + LockSuffix
	if f, err := os.Create(lock); err == nil {
		f.Close()
	} else {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.Dest), filepath.Base(r.Dest)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), r.Dest); err != nil {
		return err
	}

	return os.Remove(lock)
}
