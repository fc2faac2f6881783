package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Signature holds authorship information for a commit.
type Signature struct {
	// Name of the signer.
	Name string

	// Email of the signer.
	Email string

	// Time at which the signature was made.
	// If this is zero, the current time is used.
	Time time.Time
}

// typ is one of "COMMIT" or "AUTHOR".
func (s *Signature) appendEnv(typ string, env []string) []string {
	if s == nil {
		return env
	}

	env = append(env, "GIT_"+typ+"_NAME="+s.Name)
	env = append(env, "GIT_"+typ+"_EMAIL="+s.Email)
	if !s.Time.IsZero() {
		env = append(env, "GIT_"+typ+"_DATE="+s.Time.Format(time.RFC3339))
	}
	return env
}

// CommitTreeRequest is a request to create a new commit.
type CommitTreeRequest struct {
	// Tree is the hash of a tree object
	// representing the state of the repository
	// at the time of the commit.
	Tree Hash // required

	// Message is the commit message.
	Message string // required

	// Parents are the hashes of the parent commits.
	// This will usually have one element.
	// It may have more than one element for a merge commit,
	// and no elements for the initial commit.
	Parents []Hash

	// Author and Committer sign the commit.
	// If Committer is nil, Author is used for both.
	//
	// If both are nil, the current user is used.
	// Note that current user may not be available in all contexts.
	// Prefer to set Author and Committer explicitly.
	Author, Committer *Signature
}

// CommitTree creates a new commit with a given tree hash
// as the state of the repository.
//
// It returns the hash of the new commit.
func (r *Repository) CommitTree(ctx context.Context, req CommitTreeRequest) (Hash, error) {
	if req.Message == "" {
		return ZeroHash, errors.New("empty commit message")
	}
	if req.Committer == nil {
		req.Committer = req.Author
	}

	args := make([]string, 0, 2+2*len(req.Parents))
	args = append(args, "commit-tree")
	for _, parent := range req.Parents {
		args = append(args, "-p", parent.String())
	}
	args = append(args, req.Tree.String())

	var env []string
	env = req.Author.appendEnv("AUTHOR", env)
	env = req.Committer.appendEnv("COMMITTER", env)

	cmd := r.gitCmd(ctx, args...).
		AppendEnv(env...).
		StdinString(req.Message)
	out, err := cmd.OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("commit-tree: %w", err)
	}

	return Hash(out), nil
}

// CommitSubject returns the subject of a commit.
func (r *Repository) CommitSubject(ctx context.Context, commitish string) (string, error) {
	out, err := r.gitCmd(ctx,
		"show", "--no-patch", "--format=%s", commitish,
	).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return out, nil
}

// CommitMessage is the subject and body of a commit.
type CommitMessage struct {
	// Subject for the commit.
	// Contains no leading or trailing whitespace.
	Subject string

	// Body of the commit.
	// Contains no leading or trailing whitespace.
	Body string
}

func (m CommitMessage) String() string {
	if m.Body != "" {
		return m.Subject + "\n\n" + m.Body
	}
	return m.Subject
}

// CommitMessageRange returns the commit messages in the range (start, ^stop).
// That is, all commits reachable from start but not from stop.
func (r *Repository) CommitMessageRange(ctx context.Context, start, stop string) ([]CommitMessage, error) {
	cmd := r.gitCmd(ctx, "rev-list",
		"--format=%B%x00", // null-byte separated
		start, "--not", stop, "--",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start rev-list: %w", err)
	}

	scanner := bufio.NewScanner(out)
	scanner.Split(splitNullByte)

	var bodies []CommitMessage
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if len(raw) == 0 {
			continue
		}

		// --format with rev-list writes in the form:
		//
		//	commit <hash>\n
		//	<format string>
		//
		// We need to drop the first line.
		_, raw, _ = strings.Cut(raw, "\n")
		subject, body, _ := strings.Cut(raw, "\n")
		bodies = append(bodies, CommitMessage{
			Subject: strings.TrimSpace(subject),
			Body:    strings.TrimSpace(body),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("rev-list: %w", err)
	}

	return bodies, nil
}

// CommitInfo holds the parsed contents of a commit object:
// enough to drive the commit engine and graph builder
// without shelling out again for each field.
type CommitInfo struct {
	Hash      Hash
	Tree      Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   CommitMessage
	ChangeID  string // trailer value of "Change-Id", if present
}

// ReadCommit reads and parses the commit object at the given commit-ish.
func (r *Repository) ReadCommit(ctx context.Context, commitish string) (*CommitInfo, error) {
	hash, err := r.PeelToCommit(ctx, commitish)
	if err != nil {
		return nil, err
	}

	out, err := r.gitCmd(ctx,
		"log", "-1",
		"--format=%H%x00%T%x00%P%x00%an%x00%ae%x00%ad%x00%cn%x00%ce%x00%cd%x00%B",
		"--date=unix",
		hash.String(),
	).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("read commit %v: %w", hash, err)
	}

	fields := strings.SplitN(out, "\x00", 10)
	if len(fields) != 10 {
		return nil, fmt.Errorf("unexpected commit format for %v", hash)
	}

	parseTime := func(s string) time.Time {
		var sec int64
		_, _ = fmt.Sscanf(s, "%d", &sec)
		return time.Unix(sec, 0)
	}

	var parents []Hash
	if p := strings.TrimSpace(fields[2]); p != "" {
		for _, h := range strings.Fields(p) {
			parents = append(parents, Hash(h))
		}
	}

	body := strings.TrimRight(fields[9], "\n")
	subject, rest, _ := strings.Cut(body, "\n")
	rest = strings.TrimPrefix(rest, "\n")

	info := &CommitInfo{
		Hash:    Hash(fields[0]),
		Tree:    Hash(fields[1]),
		Parents: parents,
		Author: Signature{
			Name:  fields[3],
			Email: fields[4],
			Time:  parseTime(fields[5]),
		},
		Committer: Signature{
			Name:  fields[6],
			Email: fields[7],
			Time:  parseTime(fields[8]),
		},
		Message: CommitMessage{
			Subject: strings.TrimSpace(subject),
			Body:    strings.TrimSpace(rest),
		},
	}
	info.ChangeID = extractTrailer(body, "Change-Id")

	return info, nil
}

// extractTrailer returns the value of the named RFC-822-style trailer
// from a commit message, or "" if it is not present.
//
// Trailers are recognised in the final paragraph of the message only,
// matching `git interpret-trailers` semantics closely enough for our
// purposes: "Key: value" lines with no blank line separating them from
// the end of the message.
func extractTrailer(message, key string) string {
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")

	// Find the start of the trailing paragraph: walk back from the end
	// until we hit a blank line or the start of the message.
	end := len(lines)
	start := end
	for start > 0 && strings.TrimSpace(lines[start-1]) != "" {
		start--
	}

	prefix := key + ":"
	for _, line := range lines[start:end] {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func splitNullByte(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, 0); i >= 0 {
		// Have a null-byte separated section.
		return i + 1, data[:i], nil
	}

	// No null-byte found, but end of input,
	// so consume the rest as one section.
	if atEOF {
		return len(data), data, nil
	}

	// Request more data.
	return 0, nil, nil
}
