package admintools

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/assets"
	"github.com/TUD-INF-IAI-MCI/matshare/src/auth"
	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/email"
	"github.com/TUD-INF-IAI-MCI/matshare/src/material"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msdata"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/TUD-INF-IAI-MCI/matshare/src/queue"
	"github.com/TUD-INF-IAI-MCI/matshare/src/service"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/spf13/cobra"
)

func init() {
	adminCommand := &cobra.Command{
		Use:   "admin",
		Short: "Miscellaneous admin commands",
	}
	service.ServiceCommand.AddCommand(adminCommand)

	createUserCommand := &cobra.Command{
		Use:   "createuser <username> <email>",
		Short: "Creates a new active user with password 'password'",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a username and an email address.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]
			address := args[1]
			if !email.IsEmail(address) {
				fmt.Printf("'%s' does not look like an email address.\n", address)
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			_, err := db.QueryOneScalar[int](ctx, conn,
				`SELECT id FROM ms_user WHERE LOWER(username) = LOWER($1)`,
				username,
			)
			if err == nil {
				fmt.Printf("%s already exists. Please pick a different username.\n", username)
				os.Exit(1)
			} else if !errors.Is(err, db.NotFound) {
				panic(err)
			}

			userId, err := db.QueryOneScalar[int](ctx, conn,
				`
				INSERT INTO ms_user (username, password, email, date_joined)
				VALUES ($1, '', $2, NOW())
				RETURNING id
				`,
				username, address,
			)
			if err != nil {
				panic(err)
			}
			err = auth.SetPassword(ctx, conn, username, "password")
			if err != nil {
				panic(err)
			}

			fmt.Printf("Created user '%s' (id %d) with password 'password'.\n", username, userId)
		},
	}
	adminCommand.AddCommand(createUserCommand)

	setPasswordCommand := &cobra.Command{
		Use:   "setpassword <username> <new password>",
		Short: "Replace a user's password",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a username and a password.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			username := args[0]
			password := args[1]

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			canonicalUsername, err := db.QueryOneScalar[string](ctx, conn,
				`SELECT username FROM ms_user WHERE LOWER(username) = LOWER($1)`,
				username,
			)
			if err != nil {
				if errors.Is(err, db.NotFound) {
					fmt.Printf("User '%s' not found\n", username)
					os.Exit(1)
				} else {
					panic(err)
				}
			}

			hashedPassword := auth.HashPassword(password)

			err = auth.UpdatePassword(ctx, conn, canonicalUsername, hashedPassword)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Successfully updated password for '%s'\n", canonicalUsername)
		},
	}
	adminCommand.AddCommand(setPasswordCommand)

	createCourseCommand := &cobra.Command{
		Use:   "createcourse <study course slug> <term slug> <course type slug> <name>",
		Short: "Creates a course along with its git repository",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 4 {
				fmt.Printf("You must provide a study course, term, course type and name.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			studyCourseID := lookupSlug(ctx, conn, "study_course", args[0])
			termID := lookupSlug(ctx, conn, "term", args[1])
			courseTypeID := lookupSlug(ctx, conn, "course_type", args[2])
			name := args[3]

			course, err := db.QueryOne[models.Course](ctx, conn,
				`
				INSERT INTO course
					(study_course_id, term_id, course_type_id, slug, name, language, date_created)
				VALUES ($1, $2, $3, $4, $5, 'de', NOW())
				RETURNING $columns
				`,
				studyCourseID, termID, courseTypeID, models.DeriveSlug(name), name,
			)
			if err != nil {
				panic(err)
			}

			repo, err := msgit.InitBareRepository(course.RepositoryPath())
			if err != nil {
				panic(err)
			}

			browser, err := msgit.Open(repo, "")
			if err != nil {
				panic(err)
			}
			matucConfig, err := material.GenerateMatucConfig(course)
			if err != nil {
				panic(err)
			}
			err = browser.PutBytes(material.MatucConfigPath(), matucConfig, filemode.Regular)
			if err != nil {
				panic(err)
			}
			revision, err := browser.Commit(msgit.AdminSignature(), "Set up course metadata", config.Config.Git.MainRef)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Created course '%s' (id %d)\n", course.Name, course.ID)
			fmt.Printf("Repository: %s (at %s)\n", course.RepositoryPath(), revision)
		},
	}
	adminCommand.AddCommand(createCourseCommand)

	subscribeCommand := &cobra.Command{
		Use:   "subscribe <course id> <username> <editor|metadata|material|ro|rw>",
		Short: "Subscribes a user to a course",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 3 {
				fmt.Printf("You must provide a course id, a username, and a role.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			courseID := mustAtoi(args[0])
			userID, err := db.QueryOneScalar[int](ctx, conn,
				`SELECT id FROM ms_user WHERE LOWER(username) = LOWER($1)`,
				args[1],
			)
			if err != nil {
				if errors.Is(err, db.NotFound) {
					fmt.Printf("User '%s' not found\n", args[1])
					os.Exit(1)
				}
				panic(err)
			}

			if args[2] == "editor" {
				_, err := msdata.SubscribeEditor(ctx, conn, courseID, userID)
				if err != nil {
					panic(err)
				}
				fmt.Printf("Subscribed '%s' as an editor of course %d\n", args[1], courseID)
				return
			}

			var level models.AccessLevel
			switch args[2] {
			case "metadata":
				level = models.AccessMetadata
			case "material":
				level = models.AccessMaterial
			case "ro":
				level = models.AccessRO
			case "rw":
				level = models.AccessRW
			default:
				fmt.Printf("Unknown role '%s'\n", args[2])
				os.Exit(1)
			}
			_, err = msdata.SubscribeStudent(ctx, conn, courseID, userID, level)
			if err != nil {
				panic(err)
			}
			fmt.Printf("Subscribed '%s' to course %d at level %s\n", args[1], courseID, level)
		},
	}
	adminCommand.AddCommand(subscribeCommand)

	var easyAccessLevel string
	var easyAccessName string
	var easyAccessDays int
	easyAccessCommand := &cobra.Command{
		Use:   "easyaccess <course id> <email>",
		Short: "Creates an access token for a course and mails out the invite",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a course id and an email address.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			courseID := mustAtoi(args[0])
			address := args[1]
			if !email.IsEmail(address) {
				fmt.Printf("'%s' does not look like an email address.\n", address)
				os.Exit(1)
			}

			var level models.AccessLevel
			switch easyAccessLevel {
			case "metadata":
				level = models.AccessMetadata
			case "material":
				level = models.AccessMaterial
			case "ro":
				level = models.AccessRO
			default:
				fmt.Printf("Unknown access level '%s'\n", easyAccessLevel)
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			course, err := msdata.FetchCourse(ctx, conn, courseID)
			if err != nil {
				panic(err)
			}

			expirationDate := time.Time{}
			if easyAccessDays > 0 {
				expirationDate = time.Now().AddDate(0, 0, easyAccessDays)
			}

			ea, err := msdata.CreateEasyAccess(ctx, conn, courseID, level, easyAccessName, address, expirationDate)
			if err != nil {
				panic(err)
			}

			err = email.SendEasyAccessInvite(email.NewSMTPSender(), ea, course.Course.Name)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Created token %s for course %d, invite sent to %s\n", ea.Token, courseID, address)
		},
	}
	easyAccessCommand.Flags().StringVar(&easyAccessLevel, "level", "material", "Access level to grant (metadata, material, ro)")
	easyAccessCommand.Flags().StringVar(&easyAccessName, "name", "", "Name of the person the token is issued to")
	easyAccessCommand.Flags().IntVar(&easyAccessDays, "days", 0, "Days until the token expires (default one year)")
	adminCommand.AddCommand(easyAccessCommand)

	queueBuildCommand := &cobra.Command{
		Use:   "queuebuild <course id> <epub|html> [revision]",
		Short: "Requests a material build for a course",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a course id and a format.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			courseID := mustAtoi(args[0])
			var format models.BuildFormat
			switch args[1] {
			case "epub":
				format = models.BuildFormatEPUB
			case "html":
				format = models.BuildFormatHTML
			default:
				fmt.Printf("Unknown format '%s'\n", args[1])
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			course, err := msdata.FetchCourse(ctx, conn, courseID)
			if err != nil {
				panic(err)
			}

			revision := course.Course.MaterialRevision
			if len(args) > 2 {
				revision = args[2]
			}
			if revision == "" {
				fmt.Printf("Course %d has no material yet.\n", courseID)
				os.Exit(1)
			}

			build, err := material.RequestBuild(ctx, conn, courseID, format, revision)
			if err != nil {
				panic(err)
			}

			fmt.Printf("Build %d is %s (%s of %s)\n", build.ID, build.Status, build.Format, build.Revision)
		},
	}
	adminCommand.AddCommand(queueBuildCommand)

	importRepoCommand := &cobra.Command{
		Use:   "importrepo <source course id> <dest course id>",
		Short: "Queues importing the source course's material into the destination course",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a source and a destination course id.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			err := queue.Enqueue(ctx, conn, material.JobTypeImportCourseRepo, material.ImportCourseRepoPayload{
				SrcCoursePK:  mustAtoi(args[0]),
				DestCoursePK: mustAtoi(args[1]),
			})
			if err != nil {
				panic(err)
			}

			fmt.Println("Import queued.")
		},
	}
	adminCommand.AddCommand(importRepoCommand)

	recordPushCommand := &cobra.Command{
		Use:   "recordpush <course id> <old revision> <new revision>",
		Short: "Records a push to a course repository (for use from git hooks)",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 3 {
				fmt.Printf("You must provide a course id and the old and new revisions.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			courseID := mustAtoi(args[0])
			course, err := msdata.FetchCourse(ctx, conn, courseID)
			if err != nil {
				panic(err)
			}

			repo, err := msgit.OpenRepository(course.Course.RepositoryPath())
			if err != nil {
				panic(err)
			}

			err = msdata.ApplyReferenceUpdate(ctx, conn, &course.Course, repo, args[1], args[2],
				config.Config.Git.EditSubdir, config.Config.Git.SrcSubdir)
			if err != nil {
				panic(err)
			}

			err = queue.Enqueue(ctx, conn, material.JobTypeUpdateMatucConfig, material.UpdateMatucConfigPayload{
				CoursePK: courseID,
			})
			if err != nil {
				panic(err)
			}

			fmt.Println("Push recorded.")
		},
	}
	adminCommand.AddCommand(recordPushCommand)

	uploadAssetCommand := &cobra.Command{
		Use:   "uploadasset <course id> <file>",
		Short: "Uploads a static file for a course to asset storage",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a course id and a file.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			courseID := mustAtoi(args[0])
			content, err := os.ReadFile(args[1])
			if err != nil {
				panic(err)
			}

			contentType := mime.TypeByExtension(filepath.Ext(args[1]))
			if contentType == "" {
				contentType = "application/octet-stream"
			}

			ctx := context.Background()
			conn := db.NewConn()
			defer conn.Close(ctx)

			asset, err := assets.Create(ctx, conn, assets.CreateInput{
				Content:     content,
				Filename:    filepath.Base(args[1]),
				ContentType: contentType,
				CourseID:    &courseID,
			})
			if err != nil {
				panic(err)
			}

			fmt.Printf("Uploaded %s\n", assets.PublicUrl(asset.S3Key))
		},
	}
	adminCommand.AddCommand(uploadAssetCommand)

	sendTestMailCommand := &cobra.Command{
		Use:   "sendtestmail <address>",
		Short: "Sends a test mail using the configured SMTP settings",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 1 {
				fmt.Printf("You must provide an address.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			err := email.NewSMTPSender().Send(args[0], "MatShare Test", "MatShare test mail", "<html><body>It works!</body></html>")
			if err != nil {
				panic(err)
			}
			fmt.Println("Sent!")
		},
	}
	adminCommand.AddCommand(sendTestMailCommand)
}

func lookupSlug(ctx context.Context, conn db.ConnOrTx, table string, slug string) int {
	id, err := db.QueryOneScalar[int](ctx, conn,
		fmt.Sprintf(`SELECT id FROM %s WHERE slug = $1`, table),
		slug,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			fmt.Printf("No %s with slug '%s'\n", table, slug)
			os.Exit(1)
		}
		panic(err)
	}
	return id
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("'%s' is not a number\n", s)
		os.Exit(1)
	}
	return n
}
