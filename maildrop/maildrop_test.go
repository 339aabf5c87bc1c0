package maildrop

import (
	"fmt"
	"os"
	"testing"

	"path/filepath"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

// Structs

var usernameTests = []struct {
	in  string
	out bool
}{
	{"alice", true},
	{"if22b042", true},
	{"a", true},
	{"12345678", true},
	{"", false},
	{"123456789", false},
	{"Alice", false},
	{"al ice", false},
	{"al-ice", false},
	{"älice", false},
	{"alice/..", false},
}

// Functions

// TestValidUsername executes a table test on the
// implemented username predicate.
func TestValidUsername(t *testing.T) {

	for _, tt := range usernameTests {
		assert.Equalf(t, tt.out, ValidUsername(tt.in), "ValidUsername(%q) returned wrong result", tt.in)
	}
}

// TestDeliverAndSubjects checks that delivered messages
// appear in creation order in the subject enumeration.
func TestDeliverAndSubjects(t *testing.T) {

	store := NewStore(t.TempDir())

	// An absent mailbox counts as zero messages.
	subjects, err := store.Subjects("alice")
	assert.Nil(t, err, "Subjects on absent mailbox should not return an error")
	assert.Equal(t, 0, len(subjects), "Subjects on absent mailbox should be empty")

	// Deliver eleven messages so that numeric and lexical
	// filename order diverge ('10.msg' vs. '2.msg').
	for i := 1; i <= 11; i++ {

		seq, err := store.Deliver(&Message{
			Sender:   "bob",
			Receiver: "alice",
			Subject:  fmt.Sprintf("subject %d", i),
			Body:     []string{"line"},
		})
		assert.Nil(t, err, "Deliver should not return an error")
		assert.Equal(t, i, seq, "Deliver should assign sequence numbers in creation order")
	}

	subjects, err = store.Subjects("alice")
	assert.Nil(t, err, "Subjects should not return an error")
	assert.Equal(t, 11, len(subjects), "Subjects should list all delivered messages")
	assert.Equal(t, "subject 9", subjects[8], "messages should sort numerically")
	assert.Equal(t, "subject 10", subjects[9], "message 10 should rank after message 9")
	assert.Equal(t, "subject 11", subjects[10], "message 11 should rank last")
}

// TestDeliverInvalid verifies that no mailbox folder is ever
// created from a syntactically invalid username.
func TestDeliverInvalid(t *testing.T) {

	root := t.TempDir()
	store := NewStore(root)

	_, err := store.Deliver(&Message{
		Sender:   "bob",
		Receiver: "../alice",
		Subject:  "hi",
	})
	assert.NotNil(t, err, "Deliver to invalid receiver should return an error")

	_, err = store.Deliver(&Message{
		Sender:   "B0B",
		Receiver: "alice",
		Subject:  "hi",
	})
	assert.NotNil(t, err, "Deliver from invalid sender should return an error")

	entries, err := os.ReadDir(root)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(entries), "no folder should have been created below the spool root")
}

// TestReadRoundTrip checks that a delivered multi-line body
// comes back identically from a subsequent read.
func TestReadRoundTrip(t *testing.T) {

	store := NewStore(t.TempDir())

	body := []string{"first line", "", "third line", "..", "last line"}

	_, err := store.Deliver(&Message{
		Sender:   "bob",
		Receiver: "alice",
		Subject:  "round trip",
		Body:     body,
	})
	assert.Nil(t, err, "Deliver should not return an error")

	msg, err := store.Read("alice", 1)
	assert.Nil(t, err, "Read should not return an error")
	assert.Equal(t, "bob", msg.Sender, "Read should recover the sender")
	assert.Equal(t, "alice", msg.Receiver, "Read should recover the receiver")
	assert.Equal(t, "round trip", msg.Subject, "Read should recover the subject")
	assert.Equal(t, body, msg.Body, "Read should recover the body lines in order")
}

// TestReadOutOfRange checks index resolution edge cases.
func TestReadOutOfRange(t *testing.T) {

	store := NewStore(t.TempDir())

	_, err := store.Deliver(&Message{
		Sender:   "bob",
		Receiver: "alice",
		Subject:  "only one",
	})
	assert.Nil(t, err)

	_, err = store.Read("alice", 0)
	assert.Equal(t, ErrNoSuchMessage, errors.Cause(err), "index 0 should not resolve")

	_, err = store.Read("alice", 2)
	assert.Equal(t, ErrNoSuchMessage, errors.Cause(err), "index beyond count should not resolve")

	_, err = store.Read("nobody", 1)
	assert.Equal(t, ErrNoSuchMessage, errors.Cause(err), "absent mailbox should not resolve any index")
}

// TestDeleteReranks replays the rank-shift scenario: deleting
// message 2 of 3 makes the former message 3 the new rank 2.
func TestDeleteReranks(t *testing.T) {

	store := NewStore(t.TempDir())

	for _, subject := range []string{"hi", "re: hi", "meeting"} {
		_, err := store.Deliver(&Message{
			Sender:   "bob",
			Receiver: "alice",
			Subject:  subject,
			Body:     []string{"body of " + subject},
		})
		assert.Nil(t, err)
	}

	err := store.Delete("alice", 2)
	assert.Nil(t, err, "Delete of a valid index should not return an error")

	subjects, err := store.Subjects("alice")
	assert.Nil(t, err)
	assert.Equal(t, []string{"hi", "meeting"}, subjects, "remaining messages should re-rank in creation order")

	msg, err := store.Read("alice", 2)
	assert.Nil(t, err)
	assert.Equal(t, []string{"body of meeting"}, msg.Body, "rank 2 should now resolve to the former message 3")

	err = store.Delete("alice", 3)
	assert.Equal(t, ErrNoSuchMessage, errors.Cause(err), "old rank 3 should no longer resolve")
}

// TestDeliverSkipsOccupiedNumber checks that a delivery
// never overwrites a file already holding its target number.
func TestDeliverSkipsOccupiedNumber(t *testing.T) {

	root := t.TempDir()
	store := NewStore(root)

	_, err := store.Deliver(&Message{
		Sender:   "bob",
		Receiver: "alice",
		Subject:  "first",
	})
	assert.Nil(t, err)

	// Simulate a racing delivery that grabbed number 2 after
	// this process counted the mailbox.
	planted := filepath.Join(root, "alice", "2.msg")
	err = os.WriteFile(planted, []byte("Sender: eve\nReceiver: alice\nSubject: planted\n\n"), 0600)
	assert.Nil(t, err)

	seq, err := store.Deliver(&Message{
		Sender:   "bob",
		Receiver: "alice",
		Subject:  "second",
	})
	assert.Nil(t, err, "Deliver should not fail on an occupied sequence number")
	assert.Equal(t, 3, seq, "Deliver should bump past the occupied number")

	content, err := os.ReadFile(planted)
	assert.Nil(t, err)
	assert.Contains(t, string(content), "Subject: planted", "the racing file must not be overwritten")
}
