package sqlinline

const QEnsureStoryJobs = `--sql 021e6211-09f5-4c6c-b1d5-61bf3373d31c
create table if not exists story_jobs (
  id uuid primary key,
  status text not null default 'QUEUED',
  stage text not null default '',
  request_json jsonb not null,
  video_path text not null default '',
  video_url text not null default '',
  error_message text not null default '',
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
create index if not exists story_jobs_queue_idx on story_jobs (status, created_at);
`

const QInsertStoryJob = `--sql 7fe2c962-d31e-4462-87ae-b62f38469596
insert into story_jobs(id, status, request_json, created_at, updated_at)
values ($1::uuid, 'QUEUED', $2::jsonb, now(), now())
returning id::text, status, stage, request_json, video_path, video_url, error_message, created_at, updated_at;
`

const QClaimStoryJob = `--sql 238257dd-e2be-415f-98db-418993ddfd2b
with next_job as (
    select id
    from story_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update story_jobs
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_job)
    returning id::text, status, stage, request_json, video_path, video_url, error_message, created_at, updated_at
)
select * from updated;
`

const QUpdateStoryJobStage = `--sql 99fb312a-4652-49de-8aa2-bd6039d043c4
update story_jobs
set stage = $2::text, updated_at = now()
where id = $1::uuid;
`

const QCompleteStoryJob = `--sql d96eead4-2103-4872-829e-0ac92392784e
update story_jobs
set status = 'SUCCEEDED',
    video_path = $2::text,
    video_url = $3::text,
    error_message = '',
    updated_at = now()
where id = $1::uuid;
`

const QFailStoryJob = `--sql 543f00b0-4e38-4f61-a436-524c7ec241d2
update story_jobs
set status = 'FAILED',
    stage = coalesce(nullif($2::text, ''), stage),
    error_message = $3::text,
    updated_at = now()
where id = $1::uuid;
`

const QSelectStoryJob = `--sql 552ce6f0-3ae2-4942-86d3-dbcbe603a29a
select id::text, status, stage, request_json, video_path, video_url, error_message, created_at, updated_at
from story_jobs
where id = $1::uuid
limit 1;
`
