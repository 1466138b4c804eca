package handler

import (
	"fmt"

	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
)

// HandleQuit processes C_QUIT.
// Only closes the session; InputSystem does the world cleanup.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info(fmt.Sprintf("玩家登出  session=%d  角色=%s", sess.ID, sess.CharName))
	sess.Close()
}
