package preview

const indexHTML = `<!doctype html>
<meta charset="utf-8" />
<title>DLISR preview</title>
<style>body{font-family:system-ui;margin:2rem}video{width:80vw;max-width:1920px;background:#000}pre{font-size:.8rem}</style>
<div>
  <input id="ep" value="/whep" style="width:30rem"/>
  <button id="play">Play</button>
  <button id="stop" disabled>Stop</button>
</div>
<video id="v" playsinline autoplay muted></video>
<pre id="health"></pre>
<script>
let pc=null, res=null; const $=id=>document.getElementById(id);
$("play").onclick = async ()=>{
  const ep=$("ep").value; pc=new RTCPeerConnection();
  pc.ontrack = ev=>{$("v").srcObject=ev.streams[0];}
  pc.addTransceiver('video',{direction:'recvonly'});
  const offer = await pc.createOffer();
  await pc.setLocalDescription(offer);
  const resp=await fetch(ep,{method:'POST',headers:{'Content-Type':'application/sdp'},body:offer.sdp});
  res=resp.headers.get('Location'); const sdp=await resp.text();
  await pc.setRemoteDescription({type:'answer', sdp});
  $("stop").disabled=false;
}
$("stop").onclick = async ()=>{
  if(res){await fetch(res,{method:'DELETE'})} if(pc){pc.close()} $("stop").disabled=true;
}
setInterval(async ()=>{
  const r=await fetch('/health'); $("health").textContent=JSON.stringify(await r.json(),null,2);
}, 1000);
</script>`
