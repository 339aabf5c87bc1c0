package maildrop

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"path/filepath"

	"github.com/pkg/errors"
)

// Constants

const (
	// MaxUserLen bounds the length of a local username.
	MaxUserLen = 8

	// MaxSubjectLen bounds the length of a message subject.
	MaxSubjectLen = 80

	msgSuffix = ".msg"
)

// Variables

// ErrNoSuchMessage is returned when a supplied message
// index does not resolve to a currently stored message.
var ErrNoSuchMessage = errors.New("no message stored under supplied index")

// Structs

// Message bundles all fields of one stored mail item.
type Message struct {
	Sender   string
	Receiver string
	Subject  string
	Body     []string
}

// Store maps usernames to mailbox folders kept below a
// common spool root directory. Each message is one file
// named after its creation-order sequence number.
type Store struct {
	Root string
}

// Functions

// NewStore wraps the supplied spool root directory
// in a ready-to-use mailbox store.
func NewStore(root string) *Store {
	return &Store{
		Root: root,
	}
}

// ValidUsername reports whether the supplied name is a
// well-formed local username: between 1 and MaxUserLen
// characters, each a lowercase ASCII letter or digit.
// Names failing this predicate must never be used to
// construct a mailbox path.
func ValidUsername(name string) bool {

	if (len(name) < 1) || (len(name) > MaxUserLen) {
		return false
	}

	for i := 0; i < len(name); i++ {

		c := name[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}

	return true
}

// mailboxPath builds the folder path of one user's mailbox.
func (s *Store) mailboxPath(user string) string {
	return filepath.Join(s.Root, user)
}

// sortedMessages enumerates the message files of one user's
// mailbox sorted by their numeric sequence value, so that
// '10.msg' ranks after '9.msg' and not between '1.msg' and
// '2.msg'. A missing mailbox folder counts as zero messages.
// The ranks handed out over the protocol are positions in
// this enumeration, recomputed for every request.
func (s *Store) sortedMessages(user string) ([]string, error) {

	entries, err := os.ReadDir(s.mailboxPath(user))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate mailbox folder")
	}

	type numbered struct {
		seq  int
		name string
	}

	msgs := make([]numbered, 0, len(entries))

	for _, entry := range entries {

		if entry.IsDir() {
			continue
		}

		// Only files with a purely numeric stem and the
		// message suffix belong to the mailbox.
		name := entry.Name()
		if !strings.HasSuffix(name, msgSuffix) {
			continue
		}

		seq, err := strconv.Atoi(strings.TrimSuffix(name, msgSuffix))
		if err != nil {
			continue
		}

		msgs = append(msgs, numbered{
			seq:  seq,
			name: name,
		})
	}

	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].seq < msgs[j].seq
	})

	names := make([]string, len(msgs))
	for i, msg := range msgs {
		names[i] = msg.name
	}

	return names, nil
}

// resolve maps a 1-based protocol rank onto the name of the
// underlying message file via a fresh sorted enumeration.
func (s *Store) resolve(user string, index int) (string, error) {

	if !ValidUsername(user) {
		return "", errors.Errorf("invalid username '%s'", user)
	}

	names, err := s.sortedMessages(user)
	if err != nil {
		return "", err
	}

	if (index < 1) || (index > len(names)) {
		return "", ErrNoSuchMessage
	}

	return names[index-1], nil
}

// Deliver stores the supplied message in the receiver's
// mailbox, creating the mailbox folder if this is the first
// delivery to that user. The assigned sequence number starts
// at the current message count plus one and is bumped past
// numbers a concurrent delivery grabbed first, so two racing
// deliveries can never overwrite each other's file. It
// returns the assigned sequence number.
func (s *Store) Deliver(msg *Message) (int, error) {

	if !ValidUsername(msg.Sender) {
		return 0, errors.Errorf("invalid sender username '%s'", msg.Sender)
	}

	if !ValidUsername(msg.Receiver) {
		return 0, errors.Errorf("invalid receiver username '%s'", msg.Receiver)
	}

	if len(msg.Subject) > MaxSubjectLen {
		return 0, errors.Errorf("subject exceeds %d characters", MaxSubjectLen)
	}

	folder := s.mailboxPath(msg.Receiver)

	if err := os.MkdirAll(folder, 0700); err != nil {
		return 0, errors.Wrap(err, "failed to create mailbox folder")
	}

	existing, err := s.sortedMessages(msg.Receiver)
	if err != nil {
		return 0, err
	}

	for seq := len(existing) + 1; ; seq++ {

		path := filepath.Join(folder, fmt.Sprintf("%d%s", seq, msgSuffix))

		file, err := os.OpenFile(path, (os.O_WRONLY | os.O_CREATE | os.O_EXCL), 0600)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return 0, errors.Wrap(err, "failed to create message file")
		}

		// A write failure must not leave a partial file
		// visible as a valid numbered message.
		if err := writeMessage(file, msg); err != nil {
			file.Close()
			os.Remove(path)
			return 0, err
		}

		if err := file.Close(); err != nil {
			os.Remove(path)
			return 0, errors.Wrap(err, "failed to finish message file")
		}

		return seq, nil
	}
}

// writeMessage serializes one message as header lines,
// a blank separator line, and the body lines.
func writeMessage(file *os.File, msg *Message) error {

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "Sender: %s\n", msg.Sender)
	fmt.Fprintf(w, "Receiver: %s\n", msg.Receiver)
	fmt.Fprintf(w, "Subject: %s\n", msg.Subject)
	fmt.Fprintln(w)

	for _, line := range msg.Body {
		fmt.Fprintln(w, line)
	}

	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "failed to write message content")
	}

	return nil
}

// parseMessage reads one stored message file back
// into its message structure.
func parseMessage(path string) (*Message, error) {

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open message file")
	}
	defer file.Close()

	msg := new(Message)
	inBody := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {

		line := scanner.Text()

		if inBody {
			msg.Body = append(msg.Body, line)
			continue
		}

		switch {

		case line == "":
			inBody = true

		case strings.HasPrefix(line, "Sender: "):
			msg.Sender = strings.TrimPrefix(line, "Sender: ")

		case strings.HasPrefix(line, "Receiver: "):
			msg.Receiver = strings.TrimPrefix(line, "Receiver: ")

		case strings.HasPrefix(line, "Subject: "):
			msg.Subject = strings.TrimPrefix(line, "Subject: ")
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read message file")
	}

	return msg, nil
}

// Subjects returns the subject line of every message in the
// user's mailbox in sorted enumeration order. A mailbox that
// does not exist yet yields an empty list, not an error. An
// unreadable message file contributes an empty subject so
// that the returned count stays aligned with the enumeration.
func (s *Store) Subjects(user string) ([]string, error) {

	if !ValidUsername(user) {
		return nil, errors.Errorf("invalid username '%s'", user)
	}

	names, err := s.sortedMessages(user)
	if err != nil {
		return nil, err
	}

	subjects := make([]string, len(names))

	for i, name := range names {

		msg, err := parseMessage(filepath.Join(s.mailboxPath(user), name))
		if err != nil {
			subjects[i] = ""
			continue
		}

		subjects[i] = msg.Subject
	}

	return subjects, nil
}

// Read returns the message stored under the supplied 1-based
// rank in the user's mailbox. Ranks are positions within the
// sorted enumeration computed fresh for this call, so a
// preceding delete shifts what any given rank refers to.
func (s *Store) Read(user string, index int) (*Message, error) {

	name, err := s.resolve(user, index)
	if err != nil {
		return nil, err
	}

	return parseMessage(filepath.Join(s.mailboxPath(user), name))
}

// Delete removes the message stored under the supplied
// 1-based rank from the user's mailbox. Remaining messages
// re-rank on the next enumeration.
func (s *Store) Delete(user string, index int) error {

	name, err := s.resolve(user, index)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.mailboxPath(user), name)); err != nil {
		return errors.Wrap(err, "failed to remove message file")
	}

	return nil
}
