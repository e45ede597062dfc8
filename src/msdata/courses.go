package msdata

import (
	"context"
	"errors"

	"github.com/TUD-INF-IAI-MCI/matshare/src/db"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
)

var ErrSubCourseDepth = errors.New("a sub-course may not aggregate sub-courses of its own")

type CoursesQuery struct {
	CourseIDs      []int    // if empty, all courses
	StudyCourseIDs []int    // if empty, all study programs
	TermIDs        []int    // if empty, all terms
	Slugs          []string // if empty, all slugs

	IncludeStatic bool

	Limit, Offset int
}

type CourseAndStuff struct {
	Course      models.Course
	StudyCourse models.StudyCourse
	Term        models.Term
	CourseType  models.CourseType
}

func FetchCourses(
	ctx context.Context,
	dbConn db.ConnOrTx,
	q CoursesQuery,
) ([]CourseAndStuff, error) {
	type courseRow struct {
		Course      models.Course      `db:"course"`
		StudyCourse models.StudyCourse `db:"study_course"`
		Term        models.Term        `db:"term"`
		CourseType  models.CourseType  `db:"course_type"`
	}

	var qb db.QueryBuilder
	qb.Add(`
		SELECT $columns
		FROM
			course
			JOIN study_course ON study_course.id = course.study_course_id
			JOIN term ON term.id = course.term_id
			JOIN course_type ON course_type.id = course.course_type_id
		WHERE
			TRUE
	`)
	if len(q.CourseIDs) > 0 {
		qb.Add(`AND course.id = ANY ($?)`, q.CourseIDs)
	}
	if len(q.StudyCourseIDs) > 0 {
		qb.Add(`AND course.study_course_id = ANY ($?)`, q.StudyCourseIDs)
	}
	if len(q.TermIDs) > 0 {
		qb.Add(`AND course.term_id = ANY ($?)`, q.TermIDs)
	}
	if len(q.Slugs) > 0 {
		qb.Add(`AND course.slug = ANY ($?)`, q.Slugs)
	}
	if !q.IncludeStatic {
		qb.Add(`AND NOT course.is_static`)
	}
	qb.Add(`ORDER BY term.start_date DESC, course.slug ASC`)
	if q.Limit > 0 {
		qb.Add(`LIMIT $? OFFSET $?`, q.Limit, q.Offset)
	}

	rows, err := db.Query[courseRow](ctx, dbConn, qb.String(), qb.Args()...)
	if err != nil {
		return nil, oops.New(err, "failed to fetch courses")
	}

	result := make([]CourseAndStuff, len(rows))
	for i, row := range rows {
		result[i] = CourseAndStuff{
			Course:      row.Course,
			StudyCourse: row.StudyCourse,
			Term:        row.Term,
			CourseType:  row.CourseType,
		}
	}
	return result, nil
}

func FetchCourse(
	ctx context.Context,
	dbConn db.ConnOrTx,
	courseID int,
) (CourseAndStuff, error) {
	courses, err := FetchCourses(ctx, dbConn, CoursesQuery{
		CourseIDs:     []int{courseID},
		IncludeStatic: true,
		Limit:         1,
	})
	if err != nil {
		return CourseAndStuff{}, err
	}
	if len(courses) == 0 {
		return CourseAndStuff{}, db.NotFound
	}
	return courses[0], nil
}

// FetchCourseByNaturalKey looks a course up by its composite natural key of
// study program, term, course type and slug. This is what course URLs
// resolve through.
func FetchCourseByNaturalKey(
	ctx context.Context,
	dbConn db.ConnOrTx,
	studyCourseSlug, termSlug, courseTypeSlug, courseSlug string,
) (CourseAndStuff, error) {
	course, err := db.QueryOne[models.Course](ctx, dbConn,
		`
		SELECT $columns{course}
		FROM
			course
			JOIN study_course ON study_course.id = course.study_course_id
			JOIN term ON term.id = course.term_id
			JOIN course_type ON course_type.id = course.course_type_id
		WHERE
			study_course.slug = $1
			AND term.slug = $2
			AND course_type.slug = $3
			AND course.slug = $4
		`,
		studyCourseSlug,
		termSlug,
		courseTypeSlug,
		courseSlug,
	)
	if err != nil {
		return CourseAndStuff{}, err
	}
	return FetchCourse(ctx, dbConn, course.ID)
}

/*
AddSubCourse aggregates sub under super. Nesting depth is limited to one
level; attempts to hang a sub-course under a course that is itself a
sub-course, or to add a course that already has sub-courses of its own,
return ErrSubCourseDepth.
*/
func AddSubCourse(ctx context.Context, dbConn db.ConnOrTx, superCourseID, subCourseID int) error {
	if superCourseID == subCourseID {
		return ErrSubCourseDepth
	}

	tx, err := dbConn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	superIsSub, err := db.QueryOneScalar[bool](ctx, tx,
		`SELECT EXISTS (SELECT 1 FROM sub_course_relation WHERE sub_course_id = $1)`,
		superCourseID,
	)
	if err != nil {
		return oops.New(err, "failed to check super course nesting")
	}
	subIsSuper, err := db.QueryOneScalar[bool](ctx, tx,
		`SELECT EXISTS (SELECT 1 FROM sub_course_relation WHERE super_course_id = $1)`,
		subCourseID,
	)
	if err != nil {
		return oops.New(err, "failed to check sub course nesting")
	}
	if superIsSub || subIsSuper {
		return ErrSubCourseDepth
	}

	_, err = tx.Exec(ctx,
		`
		INSERT INTO sub_course_relation (super_course_id, sub_course_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		`,
		superCourseID, subCourseID,
	)
	if err != nil {
		return oops.New(err, "failed to insert sub-course relation")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit sub-course relation")
	}
	return nil
}

func FetchSubCourses(ctx context.Context, dbConn db.ConnOrTx, superCourseID int) ([]*models.Course, error) {
	return db.Query[models.Course](ctx, dbConn,
		`
		SELECT $columns{course}
		FROM
			sub_course_relation AS rel
			JOIN course ON course.id = rel.sub_course_id
		WHERE rel.super_course_id = $1
		ORDER BY course.slug
		`,
		superCourseID,
	)
}

func FetchSuperCourses(ctx context.Context, dbConn db.ConnOrTx, subCourseID int) ([]*models.Course, error) {
	return db.Query[models.Course](ctx, dbConn,
		`
		SELECT $columns{course}
		FROM
			sub_course_relation AS rel
			JOIN course ON course.id = rel.super_course_id
		WHERE rel.sub_course_id = $1
		ORDER BY course.slug
		`,
		subCourseID,
	)
}
