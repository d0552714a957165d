package cmdmatch

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/LeChatP/RootAsRole-sub001/policy"
	"github.com/LeChatP/RootAsRole-sub001/score"
)

// hashAlgo names the digest algorithms §4.5's hashed-binary form
// accepts: sha224, sha256, sha384, sha512.
type hashAlgo string

const (
	algoSHA224 hashAlgo = "sha224"
	algoSHA256 hashAlgo = "sha256"
	algoSHA384 hashAlgo = "sha384"
	algoSHA512 hashAlgo = "sha512"
)

// HashedBinaryMatcher implements the content-hash matcher: a structured
// Command of the shape {sha224|sha256|sha384|sha512, read_only?,
// immutable?, command} matches only a binary whose current on-disk
// content hashes to the declared digest, and optionally only if the
// file is read-only and/or has the immutable attribute set (§4.5).
type HashedBinaryMatcher struct {
	// statFile lets tests substitute the immutable-flag probe; nil
	// uses the real getFileImmutable.
	statFile func(path string) (flags uint32, err error)
}

func (HashedBinaryMatcher) Name() string { return "hashed_binary" }

func (m HashedBinaryMatcher) Match(spec policy.Command, in Input) (Result, bool) {
	if spec.IsSimple() {
		return Result{}, false
	}
	algo, digest, ok := extractDigest(spec.Structured)
	if !ok {
		return Result{}, false
	}
	commandStr, _ := spec.Structured["command"].(string)
	pathPattern, argPattern, ok := splitSimple(policy.Command{Simple: commandStr})
	if !ok {
		return Result{}, false
	}
	resolved := resolvePath(pathPattern)
	if resolved != in.CallerPath || !argsEqual(argPattern, in.CallerArgs) {
		return Result{CmdMin: score.CmdMin{Status: false}, ResolvedPath: resolved}, true
	}

	if requireBool(spec.Structured, "read_only") && isWritableByOthers(resolved) {
		return Result{CmdMin: score.CmdMin{Status: false}, ResolvedPath: resolved}, true
	}
	if requireBool(spec.Structured, "immutable") {
		immutable, err := m.isImmutable(resolved)
		if err != nil || !immutable {
			return Result{CmdMin: score.CmdMin{Status: false}, ResolvedPath: resolved}, true
		}
	}

	actual, err := hashFile(algo, resolved)
	if err != nil || !strings.EqualFold(actual, digest) {
		return Result{CmdMin: score.CmdMin{Status: false}, ResolvedPath: resolved}, true
	}
	return Result{CmdMin: score.CmdMin{Status: true}, ResolvedPath: resolved}, true
}

func extractDigest(structured map[string]any) (hashAlgo, string, bool) {
	for _, a := range []hashAlgo{algoSHA224, algoSHA256, algoSHA384, algoSHA512} {
		if v, ok := structured[string(a)].(string); ok && v != "" {
			return a, v, true
		}
	}
	return "", "", false
}

func requireBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func hashFile(algo hashAlgo, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sum []byte
	switch algo {
	case algoSHA224:
		h := sha256.New224()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		sum = h.Sum(nil)
	case algoSHA256:
		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		sum = h.Sum(nil)
	case algoSHA384:
		h := sha512.New384()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		sum = h.Sum(nil)
	case algoSHA512:
		h := sha512.New()
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		sum = h.Sum(nil)
	default:
		return "", fmt.Errorf("cmdmatch: unknown hash algorithm %q", algo)
	}
	return hex.EncodeToString(sum), nil
}

func isWritableByOthers(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Mode().Perm()&0o022 != 0
}

// isImmutable checks the ext2/ext4-style FS_IMMUTABLE_FL attribute via
// FS_IOC_GETFLAGS, mirroring the flag the storage layer sets to protect
// policy files on disk.
func (m HashedBinaryMatcher) isImmutable(path string) (bool, error) {
	if m.statFile != nil {
		flags, err := m.statFile(path)
		if err != nil {
			return false, err
		}
		return flags&unix.FS_IMMUTABLE_FL != 0, nil
	}
	return getFileImmutable(path)
}

func getFileImmutable(path string) (bool, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return false, err
	}
	defer unix.Close(fd)

	flags, err := unix.IoctlGetInt(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return false, err
	}
	return flags&unix.FS_IMMUTABLE_FL != 0, nil
}
