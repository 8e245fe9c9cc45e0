package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 用户注册/登录 + 行程参与关系。
// joined_events 是群名单的权威来源，Join/Leave 之后要发会话频道信号，
// 让群成员对齐和通知引擎的发现跟上。
type UserService struct {
	*Service
	userDAO *models.UserDAO
	token   *TokenService
	auth    *AuthService
}

func NewUserService(s *Service, token *TokenService, auth *AuthService) *UserService {
	return &UserService{
		Service: s,
		userDAO: models.NewUserDAO(s.DB),
		token:   token,
		auth:    auth,
	}
}

// Register 注册用户：bcrypt 存密码，UID 用 uuid。
func (s *UserService) Register(username, nickname, password, email string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		UID:          uuid.NewString(),
		Username:     username,
		Nickname:     nickname,
		Password:     string(hash),
		Email:        email,
		JoinedEvents: models.EncodeStringList(nil),
	}
	if err := s.userDAO.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login 校验密码并发 token（Redis，默认 TTL），触发登录态回调。
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.userDAO.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", ErrPasswordWrong
	}

	token, err := s.token.GenerateToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.token.StoreToken(ctx, token, user.UID, 0); err != nil {
		return nil, "", err
	}

	now := time.Now()
	_ = s.userDAO.TouchLastLogin(user.UID, now)

	if s.auth != nil {
		s.auth.SignedIn(user.UID)
	}
	return user, token, nil
}

// GetUser 按 UID 查用户
func (s *UserService) GetUser(uid string) (*models.User, error) {
	user, err := s.userDAO.FindByUID(uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// JoinEvent 加入行程。幂等：已在列表里是 no-op。
func (s *UserService) JoinEvent(uid, eventID string) error {
	if uid == "" {
		return ErrAuthRequired
	}
	user, err := s.GetUser(uid)
	if err != nil {
		return err
	}

	joined := user.JoinedEventList()
	for _, id := range joined {
		if id == eventID {
			return nil
		}
	}
	joined = append(joined, eventID)
	if err := s.userDAO.UpdateJoinedEvents(uid, models.EncodeStringList(joined)); err != nil {
		return err
	}

	// 名单变了：群成员缓存和发现订阅要跟上
	s.Bus.Publish(context.Background(), cons.ChannelConversations)
	return nil
}

// LeaveEvent 退出行程。幂等。
func (s *UserService) LeaveEvent(uid, eventID string) error {
	if uid == "" {
		return ErrAuthRequired
	}
	user, err := s.GetUser(uid)
	if err != nil {
		return err
	}

	joined := user.JoinedEventList()
	next := joined[:0]
	for _, id := range joined {
		if id != eventID {
			next = append(next, id)
		}
	}
	if len(next) == len(joined) {
		return nil
	}
	if err := s.userDAO.UpdateJoinedEvents(uid, models.EncodeStringList(next)); err != nil {
		return err
	}

	s.Bus.Publish(context.Background(), cons.ChannelConversations)
	return nil
}
