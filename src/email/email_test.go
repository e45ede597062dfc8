package email

import (
	"errors"
	"testing"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []recordedMail
	fail error
}

type recordedMail struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

func (s *recordingSender) Send(toAddress, toName, subject, contentHtml string) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, recordedMail{To: toAddress, ToName: toName, Subject: subject, Body: contentHtml})
	return nil
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("erika@example.com"))
	assert.True(t, IsEmail("erika.mustermann@inf.tu-dresden.de"))
	assert.False(t, IsEmail("not an email"))
	assert.False(t, IsEmail("missing@tld"))
	assert.False(t, IsEmail(""))
}

func TestSendMaterialDigest(t *testing.T) {
	sender := &recordingSender{}
	user := &models.User{Username: "erika", Email: "erika@example.com", FirstName: "Erika"}

	err := SendMaterialDigest(sender, user, []DigestCourse{
		{
			CourseName: "Analysis 1",
			CourseUrl:  "http://localhost:9001/inf/ws25/vl/analysis-1/",
			Commits: []msgit.CommitInfo{
				{Hash: "abc", Author: "Editor", Date: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), Summary: "Add chapter 3"},
			},
		},
	})
	require.Nil(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "erika@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Body, "Analysis 1")
	assert.Contains(t, sender.sent[0].Body, "Add chapter 3")
	assert.Contains(t, sender.sent[0].Body, "Erika")
}

func TestSendFailurePropagates(t *testing.T) {
	sender := &recordingSender{fail: errors.New("connection refused")}
	user := &models.User{Username: "erika", Email: "erika@example.com"}

	err := SendSourcesDigest(sender, user, nil)
	assert.NotNil(t, err)
	assert.Empty(t, sender.sent)
}

func TestSendEasyAccessInvite(t *testing.T) {
	sender := &recordingSender{}
	ea := &models.EasyAccess{
		Token:          "s3cretT0kenABCDEFGHI",
		AccessLevel:    models.AccessRO,
		Name:           "Gundela Gast",
		Email:          "guest@example.com",
		ExpirationDate: time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	err := SendEasyAccessInvite(sender, ea, "Analysis 1")
	require.Nil(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Body, "s3cretT0kenABCDEFGHI")
	assert.Contains(t, sender.sent[0].Body, "2027-04-01")
	assert.Contains(t, sender.sent[0].Body, "ro")
	assert.Contains(t, sender.sent[0].Body, "Hello Gundela Gast")
	assert.Equal(t, "Gundela Gast", sender.sent[0].ToName)
}
