package migrations

import (
	"context"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(InitialSchema{})
}

type InitialSchema struct{}

func (m InitialSchema) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC))
}

func (m InitialSchema) Name() string {
	return "InitialSchema"
}

func (m InitialSchema) Description() string {
	return "Create all MatShare tables"
}

func (m InitialSchema) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE ms_user (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			password VARCHAR(256) NOT NULL,
			email VARCHAR(254) NOT NULL,
			first_name VARCHAR(150) NOT NULL DEFAULT '',
			last_name VARCHAR(150) NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
			language VARCHAR(8) NOT NULL DEFAULT 'de',
			timezone VARCHAR(64) NOT NULL DEFAULT 'Europe/Berlin',
			editor_notification_frequency INT NOT NULL DEFAULT 100,
			student_notification_frequency INT NOT NULL DEFAULT 300,
			date_joined TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			last_login TIMESTAMP WITH TIME ZONE
		);

		CREATE TABLE study_course (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE
		);

		CREATE TABLE course_type (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE
		);

		CREATE TABLE term (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL UNIQUE,
			start_date TIMESTAMP WITH TIME ZONE NOT NULL,
			end_date TIMESTAMP WITH TIME ZONE NOT NULL,
			CHECK (end_date > start_date)
		);

		CREATE TABLE ms_user_study_course (
			user_id INT NOT NULL REFERENCES ms_user (id) ON DELETE CASCADE,
			study_course_id INT NOT NULL REFERENCES study_course (id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, study_course_id)
		);

		CREATE TABLE course (
			id SERIAL PRIMARY KEY,
			study_course_id INT NOT NULL REFERENCES study_course (id),
			term_id INT NOT NULL REFERENCES term (id),
			course_type_id INT NOT NULL REFERENCES course_type (id),
			slug VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			language VARCHAR(8) NOT NULL DEFAULT 'de',
			doi VARCHAR(255) NOT NULL DEFAULT '',
			isbn VARCHAR(32) NOT NULL DEFAULT '',
			publisher VARCHAR(255) NOT NULL DEFAULT '',
			source_format VARCHAR(64) NOT NULL DEFAULT '',
			is_static BOOLEAN NOT NULL DEFAULT FALSE,
			editing_status INT NOT NULL DEFAULT 100,
			metadata_audience INT NOT NULL DEFAULT 400,
			material_audience INT NOT NULL DEFAULT 400,
			material_revision VARCHAR(64) NOT NULL DEFAULT '',
			material_last_updated TIMESTAMP WITH TIME ZONE,
			sources_revision VARCHAR(64) NOT NULL DEFAULT '',
			sources_last_updated TIMESTAMP WITH TIME ZONE,
			magsbs_appendix_prefix BOOLEAN NOT NULL DEFAULT FALSE,
			magsbs_page_numbering_gap INT NOT NULL DEFAULT 5,
			magsbs_source_author VARCHAR(255) NOT NULL DEFAULT '',
			magsbs_generate_toc BOOLEAN NOT NULL DEFAULT TRUE,
			magsbs_toc_depth INT NOT NULL DEFAULT 5,
			date_created TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			UNIQUE (study_course_id, term_id, course_type_id, slug),
			CHECK (metadata_audience <= material_audience),
			CHECK (NOT is_static OR (material_revision = '' AND sources_revision = ''))
		);

		CREATE TABLE sub_course_relation (
			id SERIAL PRIMARY KEY,
			super_course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			sub_course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			UNIQUE (super_course_id, sub_course_id)
		);

		CREATE TABLE course_editor_subscription (
			id SERIAL PRIMARY KEY,
			course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			user_id INT NOT NULL REFERENCES ms_user (id) ON DELETE CASCADE,
			needs_notification BOOLEAN NOT NULL DEFAULT FALSE,
			notified_revisions JSONB NOT NULL DEFAULT '{}',
			date_created TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			UNIQUE (course_id, user_id)
		);

		CREATE TABLE course_student_subscription (
			id SERIAL PRIMARY KEY,
			course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			user_id INT NOT NULL REFERENCES ms_user (id) ON DELETE CASCADE,
			access_level INT NOT NULL DEFAULT 300,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			notification_frequency INT NOT NULL DEFAULT 300,
			needs_notification BOOLEAN NOT NULL DEFAULT FALSE,
			notified_revisions JSONB NOT NULL DEFAULT '{}',
			downloaded_revisions JSONB NOT NULL DEFAULT '{}',
			date_created TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			UNIQUE (course_id, user_id)
		);

		CREATE TABLE easy_access (
			id SERIAL PRIMARY KEY,
			course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			token VARCHAR(40) NOT NULL UNIQUE,
			access_level INT NOT NULL DEFAULT 300,
			expiration_date TIMESTAMP WITH TIME ZONE NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(254) NOT NULL DEFAULT '',
			date_created TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE material_build (
			id SERIAL PRIMARY KEY,
			course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			format INT NOT NULL,
			revision VARCHAR(64) NOT NULL,
			status INT NOT NULL DEFAULT 100,
			error_message TEXT NOT NULL DEFAULT '',
			date_created TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			date_done TIMESTAMP WITH TIME ZONE,
			UNIQUE (course_id, format, revision)
		);

		CREATE TABLE job_queue (
			id SERIAL PRIMARY KEY,
			job_type VARCHAR(64) NOT NULL,
			payload JSONB NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			max_attempts INT NOT NULL DEFAULT 3,
			run_after TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			last_error TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX job_queue_run_after ON job_queue (run_after);

		CREATE TABLE asset (
			id UUID PRIMARY KEY,
			s3_key VARCHAR(2000) NOT NULL,
			filename VARCHAR(2000) NOT NULL,
			size INT NOT NULL,
			mime_type VARCHAR(255) NOT NULL,
			sha1sum VARCHAR(40) NOT NULL,
			course_id INT REFERENCES course (id) ON DELETE SET NULL,
			uploader_id INT REFERENCES ms_user (id) ON DELETE SET NULL
		);
	`)
	return err
}

func (m InitialSchema) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE asset;
		DROP TABLE job_queue;
		DROP TABLE material_build;
		DROP TABLE easy_access;
		DROP TABLE course_student_subscription;
		DROP TABLE course_editor_subscription;
		DROP TABLE sub_course_relation;
		DROP TABLE course;
		DROP TABLE ms_user_study_course;
		DROP TABLE term;
		DROP TABLE course_type;
		DROP TABLE study_course;
		DROP TABLE ms_user;
	`)
	return err
}
