package email

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/smtp"
	"regexp"
	"strings"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msurl"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/TUD-INF-IAI-MCI/matshare/src/templates"
)

// Sender delivers one rendered message. The SMTP implementation is swapped
// for a recording fake in tests; a transport failure surfaces as an error
// so callers can retain their dirty flags and retry.
type Sender interface {
	Send(toAddress, toName, subject, contentHtml string) error
}

type smtpSender struct{}

func (smtpSender) Send(toAddress, toName, subject, contentHtml string) error {
	if config.Config.Email.ForceToAddress != "" {
		toAddress = config.Config.Email.ForceToAddress
	}
	contents := prepMailContents(
		makeHeaderAddress(toAddress, toName),
		makeHeaderAddress(config.Config.Email.FromAddress, config.Config.Email.FromName),
		subject,
		contentHtml,
	)

	var auth smtp.Auth
	if config.Config.Email.FromAddressPassword != "" {
		auth = smtp.PlainAuth("", config.Config.Email.FromAddress, config.Config.Email.FromAddressPassword, config.Config.Email.ServerAddress)
	}
	return smtp.SendMail(
		fmt.Sprintf("%s:%d", config.Config.Email.ServerAddress, config.Config.Email.ServerPort),
		auth,
		config.Config.Email.FromAddress,
		[]string{toAddress},
		contents,
	)
}

func NewSMTPSender() Sender {
	return smtpSender{}
}

type DigestCourse struct {
	CourseName string
	CourseUrl  string
	Commits    []msgit.CommitInfo
}

type digestData struct {
	Name    string
	BaseUrl string
	Courses []DigestCourse
}

func SendMaterialDigest(sender Sender, user *models.User, courses []DigestCourse) error {
	contents, err := renderTemplate("email_material_digest.html", digestData{
		Name:    user.FullName(),
		BaseUrl: config.Config.BaseUrl,
		Courses: courses,
	})
	if err != nil {
		return err
	}
	err = sender.Send(user.Email, user.FullName(), "[MatShare] New material available", contents)
	if err != nil {
		return oops.New(err, "failed to send material digest")
	}
	return nil
}

func SendSourcesDigest(sender Sender, user *models.User, courses []DigestCourse) error {
	contents, err := renderTemplate("email_sources_digest.html", digestData{
		Name:    user.FullName(),
		BaseUrl: config.Config.BaseUrl,
		Courses: courses,
	})
	if err != nil {
		return err
	}
	err = sender.Send(user.Email, user.FullName(), "[MatShare] New sources to transcribe", contents)
	if err != nil {
		return oops.New(err, "failed to send sources digest")
	}
	return nil
}

type easyAccessData struct {
	Name           string
	CourseName     string
	AccessLevel    string
	ActivationUrl  string
	ExpirationDate time.Time
}

func SendEasyAccessInvite(sender Sender, ea *models.EasyAccess, courseName string) error {
	contents, err := renderTemplate("email_easy_access.html", easyAccessData{
		Name:           ea.Name,
		CourseName:     courseName,
		AccessLevel:    ea.AccessLevel.String(),
		ActivationUrl:  msurl.BuildEasyAccessActivation(ea.Token),
		ExpirationDate: ea.ExpirationDate,
	})
	if err != nil {
		return err
	}
	err = sender.Send(ea.Email, ea.Name, "[MatShare] Access to "+courseName, contents)
	if err != nil {
		return oops.New(err, "failed to send easy access invite")
	}
	return nil
}

var EmailRegex = regexp.MustCompile(`^[^:\p{Cc} ]+@[^:\p{Cc} ]+\.[^:\p{Cc} ]+$`)

func IsEmail(address string) bool {
	return EmailRegex.Match([]byte(address))
}

func renderTemplate(name string, data interface{}) (string, error) {
	var buffer bytes.Buffer
	template := templates.GetTemplate(name)
	err := template.Execute(&buffer, data)
	if err != nil {
		return "", oops.New(err, "failed to render template for email")
	}
	contentString := buffer.String()
	contentString = strings.ReplaceAll(contentString, "\n", "\r\n")
	return contentString, nil
}

func makeHeaderAddress(email, fullname string) string {
	if fullname != "" {
		encoded := mime.BEncoding.Encode("utf-8", fullname)
		if encoded == fullname {
			encoded = strings.ReplaceAll(encoded, `"`, `\"`)
			encoded = fmt.Sprintf("\"%s\"", encoded)
		}
		return fmt.Sprintf("%s <%s>", encoded, email)
	} else {
		return email
	}
}

func prepMailContents(toLine string, fromLine string, subject string, contentHtml string) []byte {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("To: %s\r\n", toLine))
	builder.WriteString(fmt.Sprintf("From: %s\r\n", fromLine))
	builder.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject)))
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	builder.WriteString("\r\n")
	writer := quotedprintable.NewWriter(&builder)
	writer.Write([]byte(contentHtml))
	writer.Close()
	builder.WriteString("\r\n")

	return []byte(builder.String())
}
