package handler

import (
	"math"

	"github.com/l1jgo/spellcast/internal/net"
	"github.com/l1jgo/spellcast/internal/net/packet"
	"github.com/l1jgo/spellcast/internal/world"
)

// maxStep bounds how far one C_MOVE may carry a character.
const maxStep float32 = 10

// HandleMove processes C_MOVE.
// Packet format: [F x][F y][F z][F orientation]
// Steps longer than maxStep are ignored.
func HandleMove(sess *net.Session, r *packet.Reader, deps *Deps) {
	dest := world.Vector3{X: r.ReadF(), Y: r.ReadF(), Z: r.ReadF()}
	orientation := r.ReadF()
	if math.IsNaN(float64(orientation)) {
		return
	}
	inRegion(sess, deps, func(region *world.Region, player *world.Unit) {
		if !player.Alive() {
			return
		}
		if player.Position.DistanceSq(dest) > maxStep*maxStep {
			return
		}
		moved := player.Position != dest
		region.Move(&player.Object, dest)
		player.Orientation = orientation
		if moved {
			deps.Casts.OnMove(player)
		}
	})
}
