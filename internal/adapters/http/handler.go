package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/melih/shipyard/internal/core/domain"
	"github.com/melih/shipyard/internal/core/pipeline"
	"github.com/melih/shipyard/internal/core/ports"
	"golang.org/x/sync/semaphore"
)

// PipelineRunner runs one pipeline invocation.
type PipelineRunner interface {
	Run(ctx context.Context, inv pipeline.Invocation) (pipeline.Result, error)
}

// WebhookOptions configures the webhook trigger.
type WebhookOptions struct {
	// Secret verifies X-Hub-Signature-256. Required when Credential is set.
	Secret string

	// Repositories lists the "owner/name" or "owner" entries allowed to
	// trigger runs. Deliveries for anything else are rejected.
	Repositories []string

	Branch        string
	Context       string // build context, relative to the checkout
	Dockerfile    string
	Labels        map[string]string
	ServerURL     string
	Credential    *ports.Credential
	MaxConcurrent int64
	WorkDir       string
}

// WebhookHandler turns GitHub push and pull request deliveries into pipeline runs.
type WebhookHandler struct {
	opts   WebhookOptions
	source ports.SourceService
	runner PipelineRunner
	sem    *semaphore.Weighted
	log    *slog.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

var (
	errUnsignedPublishing = errors.New("a webhook secret is required when registry credentials are configured")
	errNoRepositories     = errors.New("at least one allowed repository or owner is required")
)

func NewWebhookHandler(ctx context.Context, opts WebhookOptions, source ports.SourceService, runner PipelineRunner, log *slog.Logger) (*WebhookHandler, error) {
	if opts.Credential != nil && opts.Secret == "" {
		return nil, errUnsignedPublishing
	}
	if len(opts.Repositories) == 0 {
		return nil, errNoRepositories
	}
	if opts.ServerURL == "" {
		opts.ServerURL = pipeline.DefaultServerURL
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		opts:   opts,
		source: source,
		runner: runner,
		sem:    semaphore.NewWeighted(opts.MaxConcurrent),
		log:    log,
		ctx:    ctx,
	}, nil
}

type gitHubPayload struct {
	Ref         string `json:"ref"`
	After       string `json:"after"`
	Action      string `json:"action"`
	PullRequest *struct {
		Number int `json:"number"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// job is a validated delivery waiting to run.
type job struct {
	event    domain.PipelineEvent
	identity domain.RepositoryIdentity
	commit   domain.CommitReference
	cloneURL string
	ref      string
}

func (h *WebhookHandler) HandleGitHub(c *fiber.Ctx) error {
	if h.opts.Secret != "" && !validSignature(h.opts.Secret, c.Get("X-Hub-Signature-256"), c.Body()) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	name := c.Get("X-GitHub-Event")
	if name == "ping" {
		return c.JSON(fiber.Map{"status": "pong"})
	}

	var payload gitHubPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	j, reason := h.jobFor(name, payload)
	if j == nil {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status": "ignored",
			"reason": reason,
		})
	}
	if !h.allowed(j.identity) {
		h.log.Warn("delivery for foreign repository rejected", "repository", j.identity)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Repository not allowed",
		})
	}

	h.dispatch(*j)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
		"event":  j.event,
		"commit": j.commit,
	})
}

func (h *WebhookHandler) jobFor(name string, p gitHubPayload) (*job, string) {
	trigger := domain.Trigger{Name: name, Ref: p.Ref}
	j := &job{identity: domain.RepositoryIdentity(p.Repository.FullName)}
	// The clone URL is derived from the configured server, never the payload.
	j.cloneURL = strings.TrimSuffix(h.opts.ServerURL, "/") + "/" + string(j.identity) + ".git"

	switch name {
	case "push":
		j.commit = domain.CommitReference(p.After)
		j.ref = p.Ref
	case "pull_request":
		if p.PullRequest == nil {
			return nil, "missing pull_request"
		}
		switch p.Action {
		case "opened", "synchronize", "reopened":
		default:
			return nil, "pull request action " + p.Action
		}
		trigger.BaseRef = p.PullRequest.Base.Ref
		j.commit = domain.CommitReference(p.PullRequest.Head.SHA)
		j.ref = fmt.Sprintf("refs/pull/%d/head", p.PullRequest.Number)
	}

	event, err := domain.ParseEvent(trigger, h.opts.Branch)
	if err != nil {
		return nil, err.Error()
	}
	j.event = event
	return j, ""
}

// allowed reports whether id matches a configured repository or owner.
func (h *WebhookHandler) allowed(id domain.RepositoryIdentity) bool {
	owner, repo, ok := strings.Cut(string(id), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return false
	}
	for _, entry := range h.opts.Repositories {
		if strings.EqualFold(entry, string(id)) || strings.EqualFold(entry, owner) {
			return true
		}
	}
	return false
}

func (h *WebhookHandler) dispatch(j job) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.sem.Acquire(h.ctx, 1); err != nil {
			h.log.Warn("pipeline run dropped", "commit", j.commit, "error", err)
			return
		}
		defer h.sem.Release(1)

		log := h.log.With("event", j.event, "repository", j.identity, "commit", j.commit)
		if err := h.run(j); err != nil {
			log.Error("pipeline failed", "error", err)
			return
		}
		log.Info("pipeline succeeded")
	}()
}

func (h *WebhookHandler) run(j job) error {
	tmpDir, err := os.MkdirTemp(h.opts.WorkDir, "shipyard-build-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := h.source.Checkout(h.ctx, j.cloneURL, j.ref, j.commit, tmpDir); err != nil {
		return &domain.Error{Kind: domain.KindInput, Op: "checkout", Err: err}
	}

	_, err = h.runner.Run(h.ctx, pipeline.Invocation{
		Event:      j.event,
		Identity:   j.identity,
		Commit:     j.commit,
		ContextDir: filepath.Join(tmpDir, h.opts.Context),
		Dockerfile: h.opts.Dockerfile,
		Labels:     h.opts.Labels,
		ServerURL:  h.opts.ServerURL,
		Credential: h.opts.Credential,
	})
	return err
}

// Wait blocks until every dispatched run has finished.
func (h *WebhookHandler) Wait() {
	h.wg.Wait()
}

func validSignature(secret, header string, body []byte) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
