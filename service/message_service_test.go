package service

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMessageService_SendMessage(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(&Service{DB: gormDB, TablePrefix: "tc_", Bus: newTestBus(t)})

	mock.ExpectExec("INSERT INTO `tc_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `tc_conversation` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := ms.SendMessage("u_1_u_2", "u_1", "João", "oi")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.MessageID == "" {
		t.Fatalf("expected generated message id")
	}
	if msg.ConversationID != "u_1_u_2" || msg.SenderUID != "u_1" || msg.Content != "oi" {
		t.Fatalf("unexpected message: %#v", msg)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_SendMessage_MetadataRetry(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(&Service{DB: gormDB, TablePrefix: "tc_", Bus: newTestBus(t)})

	mock.ExpectExec("INSERT INTO `tc_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	// 第一次元数据刷新失败，merge 写幂等所以重试一次
	mock.ExpectExec("UPDATE `tc_conversation` SET").
		WillReturnError(errors.New("deadlock"))
	mock.ExpectExec("UPDATE `tc_conversation` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg, err := ms.SendMessage("u_1_u_2", "u_1", "João", "oi")
	if err != nil {
		t.Fatalf("SendMessage with retry: %v", err)
	}
	if msg == nil {
		t.Fatalf("expected message")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_SendMessage_MetadataFailureKeepsMessage(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(&Service{DB: gormDB, TablePrefix: "tc_", Bus: newTestBus(t)})

	mock.ExpectExec("INSERT INTO `tc_message`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `tc_conversation` SET").
		WillReturnError(errors.New("down"))
	mock.ExpectExec("UPDATE `tc_conversation` SET").
		WillReturnError(errors.New("down"))

	// 消息本体已落库：错误里带 ErrSendFailed，但消息也一并返回
	msg, err := ms.SendMessage("u_1_u_2", "u_1", "João", "oi")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if msg == nil || msg.MessageID == "" {
		t.Fatalf("expected persisted message alongside error, got %#v", msg)
	}
}

func TestMessageService_SendMessage_Validation(t *testing.T) {
	gormDB, _, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(&Service{DB: gormDB, TablePrefix: "tc_", Bus: newTestBus(t)})

	if _, err := ms.SendMessage("u_1_u_2", "", "x", "oi"); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if _, err := ms.SendMessage("", "u_1", "x", "oi"); err == nil {
		t.Fatalf("expected error for empty conv id")
	}
	if _, err := ms.SendMessage("u_1_u_2", "u_1", "x", ""); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestMessageService_EditMessage_OnlyAuthor(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(&Service{DB: gormDB, TablePrefix: "tc_", Bus: newTestBus(t)})

	rows := sqlmock.NewRows([]string{"id", "message_id", "conversation_id", "sender_uid", "content"}).
		AddRow(uint64(7), "m1", "u_1_u_2", "u_2", "original")
	mock.ExpectQuery("SELECT \\* FROM `tc_message` WHERE message_id = \\?").
		WithArgs("m1", 1).
		WillReturnRows(rows)

	err := ms.EditMessage("u_1_u_2", "m1", "u_1", "hacked")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestMessageService_DeleteMessage_WrongConversation(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	ms := NewMessageService(&Service{DB: gormDB, TablePrefix: "tc_", Bus: newTestBus(t)})

	rows := sqlmock.NewRows([]string{"id", "message_id", "conversation_id", "sender_uid", "content"}).
		AddRow(uint64(7), "m1", "u_1_u_2", "u_1", "oi")
	mock.ExpectQuery("SELECT \\* FROM `tc_message` WHERE message_id = \\?").
		WithArgs("m1", 1).
		WillReturnRows(rows)

	if err := ms.DeleteMessage("group_evt_9", "m1", "u_1"); err == nil {
		t.Fatalf("expected error for conversation mismatch")
	}
}
