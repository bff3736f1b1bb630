// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mocks3 provides a minimal S3 double: object PUT/GET/DELETE and
// bucket listing over plain HTTP. It implements just enough of the S3 REST
// surface for an export gateway to upload files against, and records every
// upload for later inspection.
package mocks3

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds mock S3 server configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Object is one stored S3 object.
type Object struct {
	Key          string
	Data         []byte
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Upload is one recorded PUT, kept in arrival order for assertions.
type Upload struct {
	Bucket     string
	Key        string
	Size       int
	ReceivedAt time.Time
}

// Server stores objects in memory and serves the S3 REST subset.
type Server struct {
	cfg      Config
	mu       sync.Mutex
	buckets  map[string]map[string]Object
	uploads  []Upload
	server   *http.Server
	listener net.Listener
}

// New creates a mock S3 server.
func New(cfg Config) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		buckets: make(map[string]map[string]Object),
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      http.HandlerFunc(s.route),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Addr returns the listener's network address.
// Returns an empty string if the server hasn't started listening yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen starts the server and blocks until the context is cancelled.
func (s *Server) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.cfg.Logger.Info("mock S3 server started", slog.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.cfg.Logger.Error("mock S3 server shutdown error", slog.String("error", err.Error()))
			return err
		}

		s.cfg.Logger.Info("mock S3 server stopped")
		return nil
	}
}

// Objects returns a copy of all objects in a bucket, sorted by key.
func (s *Server) Objects(bucket string) []Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Object
	for _, obj := range s.buckets[bucket] {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Uploads returns a copy of all recorded PUTs in arrival order.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Upload, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// Clear removes all objects and upload records.
func (s *Server) Clear() {
	s.mu.Lock()
	s.buckets = make(map[string]map[string]Object)
	s.uploads = nil
	s.mu.Unlock()
}

// listBucketResult is the S3 bucket listing response.
type listBucketResult struct {
	XMLName  xml.Name       `xml:"ListBucketResult"`
	Xmlns    string         `xml:"xmlns,attr"`
	Name     string         `xml:"Name"`
	KeyCount int            `xml:"KeyCount"`
	Contents []listContents `xml:"Contents"`
}

type listContents struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

// s3Error is the S3 error response body.
type s3Error struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
	Key     string   `xml:"Key,omitempty"`
}

// route dispatches /{bucket} and /{bucket}/{key} requests.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("x-amz-request-id", uuid.NewString())

	bucket, key := splitPath(r.URL.Path)
	if bucket == "" {
		s.writeError(w, http.StatusBadRequest, "InvalidRequest", "bucket name missing", "")
		return
	}

	if key == "" {
		if r.Method == http.MethodGet {
			s.handleList(w, bucket)
			return
		}
		s.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "unsupported bucket operation", "")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handlePut(w, r, bucket, key)
	case http.MethodGet:
		s.handleGet(w, bucket, key)
	case http.MethodHead:
		s.handleHead(w, bucket, key)
	case http.MethodDelete:
		s.handleDelete(w, bucket, key)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "unsupported object operation", key)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, bucket, key string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "IncompleteBody", "failed to read request body", key)
		return
	}

	sum := md5.Sum(data)
	obj := Object{
		Key:          key,
		Data:         data,
		ETag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		ContentType:  r.Header.Get("Content-Type"),
		LastModified: time.Now().UTC(),
	}

	s.mu.Lock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]Object)
	}
	s.buckets[bucket][key] = obj
	s.uploads = append(s.uploads, Upload{
		Bucket:     bucket,
		Key:        key,
		Size:       len(data),
		ReceivedAt: time.Now(),
	})
	s.mu.Unlock()

	s.cfg.Logger.Debug("object stored",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int("size", len(data)))

	w.Header().Set("ETag", obj.ETag)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, bucket, key string) {
	s.mu.Lock()
	obj, ok := s.buckets[bucket][key]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "NoSuchKey", "the specified key does not exist", key)
		return
	}

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("ETag", obj.ETag)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

func (s *Server) handleHead(w http.ResponseWriter, bucket, key string) {
	s.mu.Lock()
	obj, ok := s.buckets[bucket][key]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("ETag", obj.ETag)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, bucket, key string) {
	s.mu.Lock()
	delete(s.buckets[bucket], key)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, bucket string) {
	objects := s.Objects(bucket)

	result := listBucketResult{
		Xmlns:    "http://s3.amazonaws.com/doc/2006-03-01/",
		Name:     bucket,
		KeyCount: len(objects),
	}
	for _, obj := range objects {
		result.Contents = append(result.Contents, listContents{
			Key:          obj.Key,
			Size:         len(obj.Data),
			ETag:         obj.ETag,
			LastModified: obj.LastModified.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(result)
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message, key string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(s3Error{Code: code, Message: message, Key: key})
}

// splitPath splits an object URL path into bucket and key.
func splitPath(path string) (bucket, key string) {
	path = strings.TrimPrefix(path, "/")
	bucket, key, _ = strings.Cut(path, "/")
	return bucket, key
}
