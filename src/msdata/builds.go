package msdata

import (
	"context"

	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

/*
GetOrCreateMaterialBuild returns the build row for the given course, format
and revision, creating it in the waiting state if it does not exist yet.
Build rows are only ever created this way, lazily, when someone first asks
for material at that revision. Returns the row and whether it was created.
*/
func GetOrCreateMaterialBuild(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID int,
	format models.BuildFormat,
	revision string,
) (*models.MaterialBuild, bool, error) {
	if revision == "" {
		return nil, false, oops.New(nil, "cannot build the empty revision")
	}

	build, err := db.QueryOne[models.MaterialBuild](ctx, dbConn,
		`SELECT $columns FROM material_build WHERE course_id = $1 AND format = $2 AND revision = $3`,
		courseID, format, revision,
	)
	if err == nil {
		return build, false, nil
	}
	if err != db.NotFound {
		return nil, false, oops.New(err, "failed to fetch material build")
	}

	// The unique constraint on (course_id, format, revision) makes a
	// concurrent create race harmless; one insert wins and both callers see
	// the same row.
	build, err = db.QueryOne[models.MaterialBuild](ctx, dbConn,
		`
		INSERT INTO material_build (course_id, format, revision, status, error_message, date_created)
		VALUES ($1, $2, $3, $4, '', NOW())
		ON CONFLICT (course_id, format, revision) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING $columns
		`,
		courseID, format, revision, models.BuildWaiting,
	)
	if err != nil {
		return nil, false, oops.New(err, "failed to create material build")
	}
	return build, build.Status == models.BuildWaiting, nil
}

func FetchBuildsForCourse(ctx context.Context, dbConn db.ConnOrTx, courseID int) ([]*models.MaterialBuild, error) {
	return db.Query[models.MaterialBuild](ctx, dbConn,
		`
		SELECT $columns FROM material_build
		WHERE course_id = $1
		ORDER BY date_created DESC
		`,
		courseID,
	)
}

/*
ClearOutdatedBuilds deletes every build whose revision no longer matches
its course's current material revision. Their output directories are
reported back so the caller can remove them from disk. Builds still in
flight are left alone.
*/
func ClearOutdatedBuilds(ctx context.Context, dbConn db.ConnOrTx) ([]string, error) {
	outdated, err := db.Query[models.MaterialBuild](ctx, dbConn,
		`
		DELETE FROM material_build AS build
		USING course
		WHERE
			course.id = build.course_id
			AND build.revision != course.material_revision
			AND build.status != $1
		RETURNING $columns{build}
		`,
		models.BuildBuilding,
	)
	if err != nil {
		return nil, oops.New(err, "failed to clear outdated builds")
	}

	paths := make([]string, 0, len(outdated))
	for _, build := range outdated {
		paths = append(paths, build.AbsolutePath())
	}
	return paths, nil
}
