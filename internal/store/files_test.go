package store

import (
	"context"
	"testing"

	"tasktrack/internal/fault"
	"tasktrack/internal/models"
)

func TestFilesAndTaskFilesLinking(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	dept, status := seedLookups(t, st)

	task := &models.Task{Subject: "s", Action: "a", DueDate: mustDate(t, "2026-01-01"), DepartmentID: dept, TaskStatusID: status}
	if err := (Tasks{}).Create(ctx, st.DB(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	var fileIDs []int64
	for _, name := range []string{"a.pdf", "b.pdf"} {
		file := &models.File{Filename: name, FilePath: "/data/1/" + name}
		if err := (Files{}).Create(ctx, st.DB(), file); err != nil {
			t.Fatalf("create file: %v", err)
		}
		link := &models.TaskFile{TaskID: task.ID, FileID: file.ID}
		if err := (TaskFiles{}).Create(ctx, st.DB(), link); err != nil {
			t.Fatalf("link: %v", err)
		}
		fileIDs = append(fileIDs, file.ID)
	}

	files, err := Files{}.ListByTask(ctx, st.DB(), task.ID)
	if err != nil {
		t.Fatalf("list by task: %v", err)
	}
	if len(files) != 2 || files[0].Filename != "a.pdf" {
		t.Fatalf("unexpected files %+v", files)
	}

	byIDs, err := Files{}.GetByIDs(ctx, st.DB(), fileIDs)
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if len(byIDs) != 2 {
		t.Fatalf("expected 2 files, got %d", len(byIDs))
	}

	link, err := TaskFiles{}.FindByTaskAndFile(ctx, st.DB(), task.ID, fileIDs[1])
	if err != nil || link == nil {
		t.Fatalf("find link: %+v err=%v", link, err)
	}
	other, err := TaskFiles{}.FindByTaskAndFile(ctx, st.DB(), task.ID+100, fileIDs[1])
	if err != nil {
		t.Fatalf("find foreign link: %v", err)
	}
	if other != nil {
		t.Fatal("expected no link for another task")
	}

	if err := (TaskFiles{}).Create(ctx, st.DB(), &models.TaskFile{TaskID: task.ID, FileID: fileIDs[0]}); !fault.Is(err, fault.Conflict) {
		t.Fatalf("expected conflict for duplicate owner, got %v", err)
	}

	removed, err := TaskFiles{}.DeleteByTask(ctx, st.DB(), task.ID)
	if err != nil || removed != 2 {
		t.Fatalf("delete by task: n=%d err=%v", removed, err)
	}
	deleted, err := Files{}.DeleteByIDs(ctx, st.DB(), fileIDs)
	if err != nil || deleted != 2 {
		t.Fatalf("delete files: n=%d err=%v", deleted, err)
	}
	if n, _ := (Files{}).Count(ctx, st.DB()); n != 0 {
		t.Fatalf("expected no files left, got %d", n)
	}
}

func TestFileRowCannotBeDeletedWhileLinked(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	dept, status := seedLookups(t, st)

	task := &models.Task{Subject: "s", Action: "a", DueDate: mustDate(t, "2026-01-01"), DepartmentID: dept, TaskStatusID: status}
	if err := (Tasks{}).Create(ctx, st.DB(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	file := &models.File{Filename: "a.pdf", FilePath: "/data/a.pdf"}
	if err := (Files{}).Create(ctx, st.DB(), file); err != nil {
		t.Fatalf("create file: %v", err)
	}
	if err := (TaskFiles{}).Create(ctx, st.DB(), &models.TaskFile{TaskID: task.ID, FileID: file.ID}); err != nil {
		t.Fatalf("link: %v", err)
	}

	if err := (Files{}).Delete(ctx, st.DB(), file.ID); err == nil {
		t.Fatal("expected foreign key to block deleting a linked file")
	}
	if err := (Tasks{}).Delete(ctx, st.DB(), task.ID); err == nil {
		t.Fatal("expected foreign key to block deleting a task with links")
	}
}
