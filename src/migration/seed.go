package migration

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/TUD-INF-IAI-MCI/matshare/src/auth"
	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/material"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msdata"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/TUD-INF-IAI-MCI/matshare/src/utils"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/jackc/pgx/v5/tracelog"
)

// Creates only what's necessary to get the service running.
func BareMinimumSeed() {
	ResetDB()
	Migrate(LatestVersion())

	ctx := context.Background()
	conn := db.NewConnWithConfig(config.PostgresConfig{
		LogLevel: tracelog.LogLevelWarn,
	})
	defer conn.Close(ctx)

	fmt.Println("Creating admin user (\"admin\"/\"password\")...")
	seedUser(ctx, conn, models.User{Username: "admin", Email: "admin@example.com", IsStaff: true, IsSuperuser: true})
}

// Seeds the database with sample data for local dev.
func SampleSeed() {
	BareMinimumSeed()

	ctx := context.Background()
	conn := db.NewConnWithConfig(config.PostgresConfig{
		LogLevel: tracelog.LogLevelWarn,
	})
	defer conn.Close(ctx)

	fmt.Println("Creating normal users (all with password \"password\")...")
	alice := seedUser(ctx, conn, models.User{Username: "alice", FirstName: "Alice", LastName: "Astor"})
	bob := seedUser(ctx, conn, models.User{Username: "bob", FirstName: "Bob", LastName: "Bauer"})
	charlie := seedUser(ctx, conn, models.User{Username: "charlie", FirstName: "Charlie", LastName: "Curie"})

	fmt.Println("Creating study courses, terms and course types...")
	csBachelor := seedScaffoldRow(ctx, conn, "study_course", "Computer Science (Bachelor)")
	mathsBachelor := seedScaffoldRow(ctx, conn, "study_course", "Mathematics (Bachelor)")
	lecture := seedScaffoldRow(ctx, conn, "course_type", "Lecture")
	exercise := seedScaffoldRow(ctx, conn, "course_type", "Exercise")
	term := seedTerm(ctx, conn, "Winter term 2026", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))

	fmt.Println("Creating courses with git repositories...")
	algorithms := seedCourse(ctx, conn, csBachelor, term, lecture, "Algorithms and Data Structures")
	algorithmsExercise := seedCourse(ctx, conn, csBachelor, term, exercise, "Algorithms and Data Structures")
	analysis := seedCourse(ctx, conn, mathsBachelor, term, lecture, "Analysis I")

	fmt.Println("Linking sub-courses...")
	utils.Must1(msdata.AddSubCourse(ctx, conn, algorithms.ID, algorithmsExercise.ID))

	fmt.Println("Creating subscriptions...")
	utils.Must(msdata.SubscribeEditor(ctx, conn, algorithms.ID, alice.ID))
	utils.Must(msdata.SubscribeEditor(ctx, conn, analysis.ID, bob.ID))
	utils.Must(msdata.SubscribeStudent(ctx, conn, algorithms.ID, charlie.ID, models.AccessMaterial))
	utils.Must(msdata.SubscribeStudent(ctx, conn, analysis.ID, charlie.ID, models.AccessRO))

	fmt.Println("Done.")
}

func seedUser(ctx context.Context, conn db.ConnOrTx, input models.User) *models.User {
	user, err := db.QueryOne[models.User](ctx, conn,
		`
		INSERT INTO ms_user (
			username, password, email,
			first_name, last_name,
			is_active, is_staff, is_superuser,
			editor_notification_frequency, student_notification_frequency,
			date_joined
		)
		VALUES ($1, '', $2, $3, $4, TRUE, $5, $6, $7, $8, NOW())
		RETURNING $columns
		`,
		input.Username, utils.OrDefault(input.Email, fmt.Sprintf("%s@example.com", input.Username)),
		input.FirstName, input.LastName,
		input.IsStaff, input.IsSuperuser,
		utils.OrDefault(input.EditorNotificationFrequency, models.NotifyImmediately),
		utils.OrDefault(input.StudentNotificationFrequency, models.NotifyDaily),
	)
	if err != nil {
		panic(err)
	}
	err = auth.SetPassword(ctx, conn, user.Username, "password")
	if err != nil {
		panic(err)
	}

	return user
}

func seedScaffoldRow(ctx context.Context, conn db.ConnOrTx, table string, name string) int {
	id, err := db.QueryOneScalar[int](ctx, conn,
		fmt.Sprintf(`INSERT INTO %s (name, slug) VALUES ($1, $2) RETURNING id`, table),
		name, models.DeriveSlug(name),
	)
	if err != nil {
		panic(err)
	}
	return id
}

func seedTerm(ctx context.Context, conn db.ConnOrTx, name string, startDate time.Time) int {
	id, err := db.QueryOneScalar[int](ctx, conn,
		`INSERT INTO term (name, slug, start_date, end_date) VALUES ($1, $2, $3, $4) RETURNING id`,
		name, models.DeriveSlug(name), startDate, startDate.AddDate(0, 6, 0),
	)
	if err != nil {
		panic(err)
	}
	return id
}

func seedCourse(ctx context.Context, conn db.ConnOrTx, studyCourseID, termID, courseTypeID int, name string) *models.Course {
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
	utils.Must1(browser.PutBytes(material.MatucConfigPath(), matucConfig, filemode.Regular))

	for chapter := 1; chapter <= 2+rand.Intn(3); chapter++ {
		page := fmt.Sprintf("# %s\n\n%s\n\n%s\n",
			lorem.Sentence(2, 6),
			lorem.Paragraph(2, 4),
			lorem.Paragraph(1, 3),
		)
		p := fmt.Sprintf("%s/k%02d/k%02d.md", config.Config.Git.EditSubdir, chapter, chapter)
		utils.Must1(browser.PutBytes(p, []byte(page), filemode.Regular))
	}

	revision, err := browser.Commit(msgit.AdminSignature(), "Initial course material", config.Config.Git.MainRef)
	if err != nil {
		panic(err)
	}

	err = msdata.ApplyReferenceUpdate(ctx, conn, course, repo, "", revision,
		config.Config.Git.EditSubdir, config.Config.Git.SrcSubdir)
	if err != nil {
		panic(err)
	}

	course.MaterialRevision = revision
	return course
}
