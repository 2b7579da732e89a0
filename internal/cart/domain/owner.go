package domain

import (
	"fmt"
	"strconv"
)

// OwnerKind 购物车归属类型
type OwnerKind uint8

const (
	OwnerUser OwnerKind = iota + 1
	OwnerGuest
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerUser:
		return "user"
	case OwnerGuest:
		return "guest"
	default:
		return "unknown"
	}
}

// Owner 购物车归属：已登录用户或匿名游客，二者取其一
type Owner struct {
	kind       OwnerKind
	userID     uint64
	guestToken string
}

// UserOwner 已登录用户
func UserOwner(userID uint64) Owner {
	return Owner{kind: OwnerUser, userID: userID}
}

// GuestOwner 持有游客令牌的匿名访客
func GuestOwner(token string) Owner {
	return Owner{kind: OwnerGuest, guestToken: token}
}

func (o Owner) Kind() OwnerKind { return o.kind }

func (o Owner) IsUser() bool { return o.kind == OwnerUser }

func (o Owner) IsGuest() bool { return o.kind == OwnerGuest }

// UserID 仅当归属为用户时返回 true
func (o Owner) UserID() (uint64, bool) {
	return o.userID, o.kind == OwnerUser
}

// GuestToken 仅当归属为游客时返回 true
func (o Owner) GuestToken() (string, bool) {
	return o.guestToken, o.kind == OwnerGuest
}

// Validate 校验归属标识
func (o Owner) Validate() error {
	switch o.kind {
	case OwnerUser:
		if o.userID == 0 {
			return fmt.Errorf("%w: user id is required", ErrInvalidOwner)
		}
	case OwnerGuest:
		if o.guestToken == "" || len(o.guestToken) > MaxGuestTokenLength {
			return fmt.Errorf("%w: malformed guest token", ErrInvalidOwner)
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

// Key 归属的稳定字符串表示，用作缓存键
func (o Owner) Key() string {
	switch o.kind {
	case OwnerUser:
		return "user:" + strconv.FormatUint(o.userID, 10)
	case OwnerGuest:
		return "guest:" + o.guestToken
	default:
		return "unknown"
	}
}

// String 日志输出时隐藏游客令牌
func (o Owner) String() string {
	if o.kind == OwnerGuest {
		if len(o.guestToken) > 8 {
			return "guest:" + o.guestToken[:8] + "..."
		}
		return "guest"
	}
	return o.Key()
}
