package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// loadToken returns cfg.Token, falling back to the key file.
// When the key file does not exist and stdin is a terminal, the user is asked for the token and the key file is created.
func loadToken(ctx context.Context, logger *zap.Logger, cfg *config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.KeyFile == "" {
		return "", errors.New("token is required")
	}

	_, err := os.Stat(cfg.KeyFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("key file does not exist", zap.String("path", cfg.KeyFile))
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", fmt.Errorf("token is required: pass --token, set DDNS_TOKEN or create %q", cfg.KeyFile)
		}
		if err := runSetup(ctx, logger, cfg); err != nil {
			return "", fmt.Errorf("setup: %w", err)
		}
	}
	if err := verifyPermissions(cfg.KeyFile); err != nil {
		return "", err
	}
	key, err := readKey(cfg.KeyFile)
	if err != nil {
		return "", err
	}
	logger.Debug("successfully read token from key file", zap.String("path", cfg.KeyFile))
	return key, nil
}

func runSetup(ctx context.Context, logger *zap.Logger, cfg *config) error {
	logger.Debug("running setup")
	time.Sleep(200 * time.Millisecond) // dirty timer hack to try to get stderr and stdout output lines to display in order
	switch cfg.Provider {
	case "cloudflare":
		fmt.Printf("Enter Cloudflare API Token: \n")
	default:
		fmt.Printf("Enter DNSPod API key as SecretId,SecretKey: \n")
	}
	bytekey, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("error reading from stdin: %w", err)
	}
	key := strings.TrimSpace(string(bytekey))

	if cfg.Provider == "cloudflare" {
		if err := verifyCloudflareToken(ctx, logger, key); err != nil {
			return err
		}
	}
	return writeKey(logger, cfg.KeyFile, key)
}

func verifyCloudflareToken(ctx context.Context, logger *zap.Logger, key string) error {
	api, err := cloudflare.NewWithAPIToken(key)
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	logger.Info("verifying token...")
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("expected api token status to be \"active\"; got \"%s\"", result.Status)
	}
	logger.Info("token verified successfully")
	return nil
}

func writeKey(logger *zap.Logger, path, key string) error {
	logger.Info("creating key file", zap.String("path", path))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, key); err != nil {
		return fmt.Errorf("unable to write \"%s\": %w", path, err)
	}
	logger.Info("token written", zap.String("path", path))
	return nil
}

func readKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("key file \"%s\" is empty", path)
		}
		return "", fmt.Errorf("error reading line: %w", err)
	}
	key = strings.TrimSpace(string(keyb))
	if key == "" {
		return "", fmt.Errorf("key file \"%s\" is empty", path)
	}
	return key, nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}
	return nil
}
