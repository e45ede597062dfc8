package material

import (
	"context"
	"encoding/json"
	"os"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/logging"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msdata"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/TUD-INF-IAI-MCI/matshare/src/queue"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	JobTypeBuildMaterial     = "build_material"
	JobTypeImportCourseRepo  = "import_course_repository"
	JobTypeUpdateMatucConfig = "update_matuc_config"
)

type BuildMaterialPayload struct {
	BuildPK int `json:"build_pk"`
}

type ImportCourseRepoPayload struct {
	SrcCoursePK  int `json:"src_course_pk"`
	DestCoursePK int `json:"dest_course_pk"`
}

type UpdateMatucConfigPayload struct {
	CoursePK int `json:"course_pk"`
}

// RegisterJobs wires the material job handlers into the queue. Called once
// during service startup.
func RegisterJobs() {
	queue.RegisterHandler(JobTypeBuildMaterial, buildMaterialJob)
	queue.RegisterHandler(JobTypeImportCourseRepo, importCourseRepoJob)
	queue.RegisterHandler(JobTypeUpdateMatucConfig, updateMatucConfigJob)
}

// RequestBuild lazily creates the build row for (course, format, revision)
// and enqueues a build job if the row is new.
func RequestBuild(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID int,
	format models.BuildFormat,
	revision string,
) (*models.MaterialBuild, error) {
	build, created, err := msdata.GetOrCreateMaterialBuild(ctx, dbConn, courseID, format, revision)
	if err != nil {
		return nil, err
	}
	if created {
		err = queue.Enqueue(ctx, dbConn, JobTypeBuildMaterial, BuildMaterialPayload{BuildPK: build.ID})
		if err != nil {
			return nil, err
		}
	}
	return build, nil
}

/*
buildMaterialJob drives one build through waiting → building → completed or
failed.

Everything up to and including the waiting → building transition returns
errors to the queue, so infrastructure failures get the bounded retry. Once
the transition is committed this job owns the row exclusively; any
subsequent failure is a business outcome recorded as the failed state, and
the job returns nil so the queue never retries a terminal build.
*/
// A build may only be claimed while it is still waiting. Anything else means
// another worker took it, or it already finished.
func buildClaimable(status models.BuildStatus) bool {
	return status == models.BuildWaiting
}

func buildMaterialJob(ctx context.Context, conn *pgxpool.Pool, rawPayload json.RawMessage) error {
	var payload BuildMaterialPayload
	err := json.Unmarshal(rawPayload, &payload)
	if err != nil {
		return oops.New(err, "failed to decode build payload")
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start claim transaction")
	}
	defer tx.Rollback(ctx)

	build, err := db.QueryOne[models.MaterialBuild](ctx, tx,
		`SELECT $columns FROM material_build WHERE id = $1 FOR UPDATE`,
		payload.BuildPK,
	)
	if err == db.NotFound {
		// Swept by the garbage collector before we got to it.
		return nil
	}
	if err != nil {
		return oops.New(err, "failed to lock build %d", payload.BuildPK)
	}

	if !buildClaimable(build.Status) {
		// Another worker claimed it. Not an error.
		logging.Info().Int("build", build.ID).Stringer("status", build.Status).Msg("build already claimed, skipping")
		return nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE material_build SET status = $2 WHERE id = $1`,
		build.ID, models.BuildBuilding,
	)
	if err != nil {
		return oops.New(err, "failed to mark build %d as building", build.ID)
	}
	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit claim of build %d", build.ID)
	}

	// The slow part runs outside any lock; status is externally visible as
	// building the whole time.
	buildErr := runBuild(ctx, conn, build)

	finalStatus := models.BuildCompleted
	errorMessage := ""
	if buildErr != nil {
		finalStatus = models.BuildFailed
		errorMessage = buildErr.Error()
		logging.Error().Err(buildErr).Int("build", build.ID).Msg("material build failed")
	}

	_, err = conn.Exec(ctx,
		`
		UPDATE material_build
		SET status = $2, error_message = $3, date_done = NOW()
		WHERE id = $1
		`,
		build.ID, finalStatus, errorMessage,
	)
	if err != nil {
		return oops.New(err, "failed to record final state of build %d", build.ID)
	}
	return nil
}

func runBuild(ctx context.Context, conn *pgxpool.Pool, build *models.MaterialBuild) error {
	courseAndStuff, err := msdata.FetchCourse(ctx, conn, build.CourseID)
	if err != nil {
		return oops.New(err, "failed to fetch course %d", build.CourseID)
	}
	course := &courseAndStuff.Course

	builder, err := BuilderFor(build.Format)
	if err != nil {
		return err
	}

	repo, err := msgit.OpenRepository(course.RepositoryPath())
	if err != nil {
		return oops.New(err, "failed to open repository for course %d", course.ID)
	}
	browser, err := msgit.Open(repo, build.Revision)
	if err != nil {
		return oops.New(err, "failed to open revision %s", build.Revision)
	}

	scratchDir, err := os.MkdirTemp("", "matshare-build-")
	if err != nil {
		return oops.New(err, "failed to allocate scratch directory")
	}
	defer os.RemoveAll(scratchDir)

	err = browser.WriteSubtreeToDir(config.Config.Git.EditSubdir, scratchDir)
	if err != nil {
		return oops.New(err, "failed to extract edit subtree at %s", build.Revision)
	}

	return builder(ctx, scratchDir, course, build)
}

/*
importCourseRepoJob copies the source course's entire tree into the
destination course's repository as a single commit, excluding the generated
matuc config (the destination keeps its own). Used for "clone course". The
destination course row is locked for the whole read-modify-commit sequence.
*/
func importCourseRepoJob(ctx context.Context, conn *pgxpool.Pool, rawPayload json.RawMessage) error {
	var payload ImportCourseRepoPayload
	err := json.Unmarshal(rawPayload, &payload)
	if err != nil {
		return oops.New(err, "failed to decode import payload")
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	dest, err := db.QueryOne[models.Course](ctx, tx,
		`SELECT $columns FROM course WHERE id = $1 FOR UPDATE`,
		payload.DestCoursePK,
	)
	if err != nil {
		return oops.New(err, "failed to lock destination course %d", payload.DestCoursePK)
	}
	src, err := db.QueryOne[models.Course](ctx, tx,
		`SELECT $columns FROM course WHERE id = $1`,
		payload.SrcCoursePK,
	)
	if err != nil {
		return oops.New(err, "failed to fetch source course %d", payload.SrcCoursePK)
	}

	err = dest.EnsureNotStatic()
	if err != nil {
		return err
	}

	srcRepo, err := msgit.OpenRepository(src.RepositoryPath())
	if err != nil {
		return err
	}
	destRepo, err := msgit.OpenRepository(dest.RepositoryPath())
	if err != nil {
		return err
	}

	mainRef := config.Config.Git.MainRef
	oldRevision := ""
	if head, err := destRepo.ResolveCommittish(mainRef); err == nil {
		oldRevision = head.Hash.String()
	}

	browser, err := msgit.Open(destRepo, oldRevision)
	if err != nil {
		return err
	}
	err = browser.CopyFrom(srcRepo, mainRef, ".", ".", map[string]bool{
		MatucConfigPath(): true,
	})
	if err != nil {
		return oops.New(err, "failed to copy repository contents")
	}

	newRevision, err := browser.Commit(
		msgit.AdminSignature(),
		"Import course contents from "+src.Slug,
		mainRef,
	)
	if err != nil {
		return err
	}

	err = msdata.ApplyReferenceUpdate(ctx, tx, dest, destRepo, oldRevision, newRevision,
		config.Config.Git.EditSubdir, config.Config.Git.SrcSubdir)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

/*
updateMatucConfigJob regenerates the course's matuc config and commits it,
but only when the generated content actually differs from what is already
committed. The candidate blob's id is computed locally and compared against
the committed entry's id before anything is staged, so a no-op regeneration
produces no commit at all.
*/
func updateMatucConfigJob(ctx context.Context, conn *pgxpool.Pool, rawPayload json.RawMessage) error {
	var payload UpdateMatucConfigPayload
	err := json.Unmarshal(rawPayload, &payload)
	if err != nil {
		return oops.New(err, "failed to decode config update payload")
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	course, err := db.QueryOne[models.Course](ctx, tx,
		`SELECT $columns FROM course WHERE id = $1 FOR UPDATE`,
		payload.CoursePK,
	)
	if err != nil {
		return oops.New(err, "failed to lock course %d", payload.CoursePK)
	}

	err = course.EnsureNotStatic()
	if err != nil {
		return err
	}

	content, err := GenerateMatucConfig(course)
	if err != nil {
		return err
	}

	repo, err := msgit.OpenRepository(course.RepositoryPath())
	if err != nil {
		return err
	}

	mainRef := config.Config.Git.MainRef
	oldRevision := ""
	if head, err := repo.ResolveCommittish(mainRef); err == nil {
		oldRevision = head.Hash.String()
	}

	browser, err := msgit.Open(repo, oldRevision)
	if err != nil {
		return err
	}

	configPath := MatucConfigPath()
	if existing, err := browser.Get(configPath); err == nil {
		if existing.Hash.String() == msgit.ComputeBlobID(content) {
			return nil
		}
	}

	err = browser.PutBytes(configPath, content, filemode.Regular)
	if err != nil {
		return err
	}

	newRevision, err := browser.Commit(msgit.AdminSignature(), "Update matuc configuration", mainRef)
	if err != nil {
		return err
	}

	err = msdata.ApplyReferenceUpdate(ctx, tx, course, repo, oldRevision, newRevision,
		config.Config.Git.EditSubdir, config.Config.Git.SrcSubdir)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
