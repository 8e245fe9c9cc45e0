package service

import (
	"context"
	"fmt"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/Josef-miguel/tripchat-sdk/repository"
)

// ReviewService 行程评价/评论的写入口。
// 通知引擎订阅的就是这里发出的信号；评论本身的展示归宿主业务。
type ReviewService struct {
	*Service
	reviewDAO *repository.ReviewDAO
}

func NewReviewService(s *Service) *ReviewService {
	return &ReviewService{Service: s, reviewDAO: repository.NewReviewDAO(s.DB)}
}

// AddReview 写入一条评论并发该行程的评论频道信号。
func (s *ReviewService) AddReview(eventID, authorUID, username, text string) (*models.Review, error) {
	if authorUID == "" {
		return nil, ErrAuthRequired
	}
	if eventID == "" || text == "" {
		return nil, fmt.Errorf("event_id and text are required")
	}

	review := &models.Review{
		EventID:     eventID,
		AuthorUID:   authorUID,
		Username:    username,
		CommentText: text,
	}
	if err := s.reviewDAO.Create(review); err != nil {
		return nil, err
	}

	s.Bus.Publish(context.Background(), cons.ChannelEventReviews(eventID))
	return review, nil
}

// ListEventReviews 行程全部评论（创建时间升序）
func (s *ReviewService) ListEventReviews(eventID string) ([]models.Review, error) {
	return s.reviewDAO.ListByEvent(eventID)
}
